package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nft-ticketing/internal/status"
	"nft-ticketing/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
)

// Store is the relational persistence layer for events, tickets and
// transactions. It is constructed around a dbx.Builder so the server can
// hand it app.DB() while tests run it against an in-memory database.
type Store struct {
	db dbx.Builder
}

func NewStore(db dbx.Builder) *Store {
	return &Store{db: db}
}

func (s *Store) EventByID(id string) (*models.Event, error) {
	ev := models.Event{}
	err := s.db.Select().From("events").Where(dbx.HashExp{"id": id}).One(&ev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("EventByID: %w", err)
	}
	return &ev, nil
}

func (s *Store) EventByMachineID(machineID string) (*models.Event, error) {
	ev := models.Event{}
	err := s.db.Select().From("events").Where(dbx.HashExp{"machine_id": machineID}).One(&ev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("EventByMachineID: %w", err)
	}
	return &ev, nil
}

func (s *Store) ListEvents(activeOnly bool) ([]models.Event, error) {
	events := []models.Event{}
	q := s.db.Select().From("events").OrderBy("start_time ASC")
	if activeOnly {
		q = q.Where(dbx.HashExp{"active": true})
	}
	if err := q.All(&events); err != nil {
		return nil, fmt.Errorf("ListEvents: %w", err)
	}
	return events, nil
}

func (s *Store) InsertEvent(ev *models.Event) error {
	_, err := s.db.Insert("events", dbx.Params{
		"id":                ev.ID,
		"name":              ev.Name,
		"description":       ev.Description,
		"venue":             ev.Venue,
		"start_time":        ev.StartTime,
		"total_tickets":     ev.TotalTickets,
		"available_tickets": ev.AvailableTickets,
		"price":             ev.Price,
		"currency":          ev.Currency,
		"collection_id":     ev.CollectionID,
		"machine_id":        ev.MachineID,
		"active":            ev.Active,
		"created":           ev.Created,
		"updated":           ev.Updated,
	}).Execute()
	if err != nil {
		return fmt.Errorf("InsertEvent: %w", err)
	}
	return nil
}

func (s *Store) DeactivateEvent(id string) error {
	res, err := s.db.Update("events",
		dbx.Params{"active": false, "updated": types.NowDateTime()},
		dbx.HashExp{"id": id},
	).Execute()
	if err != nil {
		return fmt.Errorf("DeactivateEvent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return status.ErrEventNotFound
	}
	return nil
}

// DecrementAvailable decrements the event's available-ticket counter by
// one, with a floor at zero. The guard keeps two concurrent confirmed
// mints from driving the counter negative; the caller treats a false
// return as "counter lagging", not as a failed mint.
func (s *Store) DecrementAvailable(eventID string) (bool, error) {
	res, err := s.db.NewQuery(
		"UPDATE events SET available_tickets = available_tickets - 1, updated = {:now} WHERE id = {:id} AND available_tickets > 0",
	).Bind(dbx.Params{"id": eventID, "now": types.NowDateTime()}).Execute()
	if err != nil {
		return false, fmt.Errorf("DecrementAvailable: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DecrementAvailable: RowsAffected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) TicketByID(id string) (*models.Ticket, error) {
	t := models.Ticket{}
	err := s.db.Select().From("tickets").Where(dbx.HashExp{"id": id}).One(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("TicketByID: %w", err)
	}
	return &t, nil
}

func (s *Store) TicketByAssetID(assetID string) (*models.Ticket, error) {
	t := models.Ticket{}
	err := s.db.Select().From("tickets").Where(dbx.HashExp{"asset_id": assetID}).One(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("TicketByAssetID: %w", err)
	}
	return &t, nil
}

// InsertTicket inserts a ticket row. The tickets collection carries a
// unique index on asset_id; a duplicate insert surfaces as an error that
// the caller resolves by re-reading the winner's row.
func (s *Store) InsertTicket(t *models.Ticket) error {
	_, err := s.db.Insert("tickets", dbx.Params{
		"id":             t.ID,
		"event_id":       t.EventID,
		"asset_id":       t.AssetID,
		"owner":          t.Owner,
		"seat_label":     t.SeatLabel,
		"status":         t.Status,
		"used":           t.Used,
		"created":        t.Created,
		"transferred_at": t.TransferredAt,
	}).Execute()
	if err != nil {
		return fmt.Errorf("InsertTicket: %w", err)
	}
	return nil
}

func (s *Store) UpdateTicketOwner(id, newOwner string) error {
	res, err := s.db.Update("tickets",
		dbx.Params{
			"owner":          newOwner,
			"status":         models.TicketStatusTransferred,
			"transferred_at": types.NowDateTime(),
		},
		dbx.HashExp{"id": id},
	).Execute()
	if err != nil {
		return fmt.Errorf("UpdateTicketOwner: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return status.ErrTicketNotFound
	}
	return nil
}

// MarkTicketUsed flips the one-way used latch. The used = false guard
// makes the latch safe against two concurrent verifications: only one
// caller sees a row change.
func (s *Store) MarkTicketUsed(id string) error {
	res, err := s.db.Update("tickets",
		dbx.Params{"used": true, "status": models.TicketStatusUsed},
		dbx.HashExp{"id": id, "used": false},
	).Execute()
	if err != nil {
		return fmt.Errorf("MarkTicketUsed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return status.ErrTicketUsed
	}
	return nil
}

func (s *Store) InsertTransaction(tx *models.Transaction) error {
	_, err := s.db.Insert("transactions", dbx.Params{
		"id":             tx.ID,
		"event_id":       tx.EventID,
		"wallet":         tx.Wallet,
		"payment_method": tx.PaymentMethod,
		"amount":         tx.Amount,
		"currency":       tx.Currency,
		"quantity":       tx.Quantity,
		"status":         tx.Status,
		"ticket_id":      tx.TicketID,
		"signature":      tx.Signature,
		"created":        tx.Created,
	}).Execute()
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

func (s *Store) TransactionByID(id string) (*models.Transaction, error) {
	tx := models.Transaction{}
	err := s.db.Select().From("transactions").Where(dbx.HashExp{"id": id}).One(&tx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("TransactionByID: %w", err)
	}
	return &tx, nil
}

func (s *Store) MarkTransactionSuccessful(id, ticketID, signature string) error {
	res, err := s.db.Update("transactions",
		dbx.Params{
			"status":    models.TransactionStatusSuccessful,
			"ticket_id": ticketID,
			"signature": signature,
		},
		dbx.HashExp{"id": id},
	).Execute()
	if err != nil {
		return fmt.Errorf("MarkTransactionSuccessful: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return status.ErrTransactionNotFound
	}
	return nil
}

// ListStaleTransactions returns pending transactions created before the
// cutoff. There is no automatic expiry; this feeds the operator-driven
// reconciliation pass.
func (s *Store) ListStaleTransactions(olderThan time.Time) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	cutoff, err := types.ParseDateTime(olderThan)
	if err != nil {
		return nil, fmt.Errorf("ListStaleTransactions: %w", err)
	}
	err = s.db.Select().From("transactions").
		Where(dbx.HashExp{"status": models.TransactionStatusPending}).
		AndWhere(dbx.NewExp("created < {:cutoff}", dbx.Params{"cutoff": cutoff})).
		OrderBy("created ASC").
		All(&txs)
	if err != nil {
		return nil, fmt.Errorf("ListStaleTransactions: %w", err)
	}
	return txs, nil
}
