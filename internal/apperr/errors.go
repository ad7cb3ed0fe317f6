package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRef       = errors.New("unresolvable $ref")
	ErrNonLocalRef      = errors.New("non-local $ref")
	ErrSchemaUnreadable = errors.New("schema unreadable")
)
