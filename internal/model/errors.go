package model

import "errors"

// Error kind sentinels for the core's error taxonomy (§7). Handlers map
// these to HTTP status codes; nothing below the handler layer should know
// about HTTP.
var (
	ErrValidation        = errors.New("validation error")
	ErrUnknownReference  = errors.New("unknown reference")
	ErrUnknownUser       = errors.New("unknown user")
	ErrInsufficientFunds = errors.New("insufficient tokens")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected   = errors.New("payment gateway rejected transaction")
	ErrConflictingState  = errors.New("conflicting transaction state")
	ErrStorage           = errors.New("storage error")
	ErrDuplicateReference = errors.New("reference collision")
)

// InsufficientTokensError carries the §6 HTTP 402 shape.
type InsufficientTokensError struct {
	Required int64
	Current  int64
}

func (e *InsufficientTokensError) Error() string {
	return "insufficient tokens"
}

func (e *InsufficientTokensError) Unwrap() error {
	return ErrInsufficientFunds
}
