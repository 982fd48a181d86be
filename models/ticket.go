package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	TicketStatusPurchased   = "purchased"
	TicketStatusTransferred = "transferred"
	TicketStatusUsed        = "used"
)

type Ticket struct {
	ID            string         `db:"id" json:"id"`
	EventID       string         `db:"event_id" json:"event_id"`
	AssetID       string         `db:"asset_id" json:"asset_id"`
	Owner         string         `db:"owner" json:"owner"`
	SeatLabel     string         `db:"seat_label" json:"seat_label"`
	Status        string         `db:"status" json:"status"` // purchased, transferred, used
	Used          bool           `db:"used" json:"used"`
	Created       types.DateTime `db:"created" json:"created"`
	TransferredAt types.DateTime `db:"transferred_at" json:"transferred_at"`
}
