package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

type Event struct {
	ID               string          `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Description      string          `db:"description" json:"description"`
	Venue            string          `db:"venue" json:"venue"`
	StartTime        types.DateTime  `db:"start_time" json:"start_time"`
	TotalTickets     int             `db:"total_tickets" json:"total_tickets"`
	AvailableTickets int             `db:"available_tickets" json:"available_tickets"`
	Price            decimal.Decimal `db:"price" json:"price"`
	Currency         string          `db:"currency" json:"currency"`
	CollectionID     string          `db:"collection_id" json:"collection_id"`
	MachineID        string          `db:"machine_id" json:"machine_id"`
	Active           bool            `db:"active" json:"active"`
	Created          types.DateTime  `db:"created" json:"created"`
	Updated          types.DateTime  `db:"updated" json:"updated"`
}
