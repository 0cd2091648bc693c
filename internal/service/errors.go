package service

import "errors"

var (
	ErrNotFound     = errors.New("error not found")
	ErrSellConflict = errors.New("error sale retries exhausted on concurrent modification")
)
