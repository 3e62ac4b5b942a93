package errors

import "errors"

var (
	ErrNothingToClaim         = errors.New("nothing to claim")
	ErrClaimSourceUnavailable = errors.New("claim source unavailable")
	ErrWalletNotFound         = errors.New("ephemeral wallet not found")
	ErrInvalidWalletState     = errors.New("invalid wallet state transition")
	ErrCycleAlreadyRunning    = errors.New("claim cycle already running")
	ErrMasterKeyUnavailable   = errors.New("master wallet key unavailable")
)
