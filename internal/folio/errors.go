package folio

import "errors"

var (
	// ErrInvalidRequest rejects malformed sell input (zero/negative
	// quantity, non-positive price, missing date) before any allocation.
	ErrInvalidRequest = errors.New("error invalid sale request")

	// ErrInsufficientQuantity rejects a sale exceeding the total remaining
	// quantity of the holding. The whole sale is rejected, nothing is applied.
	ErrInsufficientQuantity = errors.New("error insufficient remaining quantity")
)
