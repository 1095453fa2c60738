package event

import "errors"

var (
	ErrInvalidRecord   = errors.New("invalid raw record")
	ErrFieldType       = errors.New("unexpected field type")
	ErrUnparseableDate = errors.New("unparseable date")
	ErrNoDate          = errors.New("no date value")
)
