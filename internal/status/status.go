package status

import "errors"

var (
	ErrEventNotFound       = errors.New("event: event not found")
	ErrEventInactive       = errors.New("event: event is not active")
	ErrTicketNotFound      = errors.New("ticket: ticket not found")
	ErrTicketUsed          = errors.New("ticket: ticket already used")
	ErrOwnerMismatch       = errors.New("ticket: on-chain owner mismatch")
	ErrTransactionNotFound = errors.New("transaction: transaction not found")
	ErrInvalidQuantity     = errors.New("purchase: quantity must be at least 1")
	ErrSoldOut             = errors.New("purchase: not enough tickets available")
	ErrLedgerUnavailable   = errors.New("ledger: upstream call failed")
)
