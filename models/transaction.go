package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending    = "pending"
	TransactionStatusSuccessful = "successful"
)

type Transaction struct {
	ID            string          `db:"id" json:"id"`
	EventID       string          `db:"event_id" json:"event_id"`
	Wallet        string          `db:"wallet" json:"wallet"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	Quantity      int             `db:"quantity" json:"quantity"`
	Status        string          `db:"status" json:"status"` // pending, successful
	TicketID      string          `db:"ticket_id" json:"ticket_id,omitempty"`
	Signature     string          `db:"signature" json:"signature,omitempty"`
	Created       types.DateTime  `db:"created" json:"created"`
}
