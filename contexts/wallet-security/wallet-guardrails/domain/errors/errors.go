package errors

import "errors"

var (
	ErrInvalidDestination    = errors.New("destination address is not valid")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrPerTransactionCap     = errors.New("amount exceeds per-transaction cap")
	ErrDailyCapExceeded      = errors.New("amount would exceed rolling daily cap")
	ErrDestinationNotAllowed = errors.New("destination is not on the allowlist")
	ErrGuardrailUnavailable  = errors.New("guardrail state could not be read")
)
