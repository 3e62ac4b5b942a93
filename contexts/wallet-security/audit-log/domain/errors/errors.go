package errors

import "errors"

var (
	ErrInvalidOperationKind = errors.New("invalid audit operation kind")
	ErrInvalidAuditInput    = errors.New("invalid audit entry input")
)
