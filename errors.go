package lakeshift

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig marks errors raised by option validation before any
	// remote call is made.
	ErrInvalidConfig = errors.New("lakeshift: invalid configuration")

	// ErrData marks errors caused by the dataset itself, such as a value that
	// cannot be encoded or column names that were not sanitized.
	ErrData = errors.New("lakeshift: data error")
)
