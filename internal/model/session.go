package model

type Action int

const (
	DefaultAction Action = iota
	ExpectingOwnerTag
	ExpectingAddLotInput
	ExpectingSellInput
	ExpectingEditLotInput
)

// Session is the per-chat dialog state kept in redis between updates.
type Session struct {
	Action Action
	Owner  string
}
