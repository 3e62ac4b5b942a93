package errors

import "errors"

var (
	ErrAlreadyProcessed       = errors.New("claim already processed")
	ErrBelowMinimumClaim      = errors.New("claim amount below minimum")
	ErrNoEligibleRecipients   = errors.New("no recipients qualify for allocation")
	ErrBatchNotFound          = errors.New("claim batch not found")
	ErrAllocationNotFound     = errors.New("claim allocation not found")
	ErrInvalidDistributeInput = errors.New("invalid distribute input")
)
