package ledger

import "errors"

var (
	ErrInvalidAddress       = errors.New("invalid ledger address")
	ErrInvalidKeySeed       = errors.New("invalid key seed length")
	ErrInvalidKeyCiphertext = errors.New("invalid encrypted key material")
	ErrWrongPassphrase      = errors.New("wrong wallet passphrase")
	ErrConfirmationTimeout  = errors.New("transaction confirmation timed out")
	ErrTransactionRejected  = errors.New("transaction rejected by ledger")
)
