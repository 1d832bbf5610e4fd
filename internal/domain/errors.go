package domain

import "errors"

var (
	ErrEmptyPattern   = errors.New("pattern is empty")
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrUnknownList    = errors.New("unknown list")
	ErrPatternExists  = errors.New("pattern already listed")
)
