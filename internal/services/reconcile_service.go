package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"nft-ticketing/internal/status"
	"nft-ticketing/internal/store"
	"nft-ticketing/models"
	"nft-ticketing/monitoring"
	"nft-ticketing/utils"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// ReconcileService converts mint and transfer observations into ticket
// rows and a monotonically correct available-ticket count, tolerating
// duplicate and out-of-order delivery. The ticket's asset id carries a
// unique constraint; that constraint, not application locking, is what
// keeps concurrent duplicate observations down to one row.
type ReconcileService struct {
	store     *store.Store
	publisher Publisher
}

func NewReconcileService(st *store.Store, publisher Publisher) *ReconcileService {
	return &ReconcileService{
		store:     st,
		publisher: publisher,
	}
}

// RecordMint reconciles one observed mint. Calling it any number of
// times for the same asset id yields exactly one ticket and exactly one
// counter decrement. Step ordering fails toward "ticket exists,
// bookkeeping may lag", never the reverse.
func (s *ReconcileService) RecordMint(ctx context.Context, m models.MintObserved) (*models.Ticket, error) {
	// Duplicate delivery short-circuits to the existing row.
	if existing, err := s.store.TicketByAssetID(m.AssetID); err == nil {
		monitoring.TrackReconcile("record_mint", "duplicate")
		return existing, nil
	} else if !errors.Is(err, status.ErrTicketNotFound) {
		return nil, fmt.Errorf("RecordMint: %w", err)
	}

	event, err := s.store.EventByID(m.EventID)
	if err != nil {
		monitoring.TrackReconcile("record_mint", "event_not_found")
		return nil, err
	}

	// Sequential seat numbering derived from the counter at read time.
	seat := event.TotalTickets - event.AvailableTickets + 1

	ticket := &models.Ticket{
		ID:        utils.MustGenerateID(15),
		EventID:   event.ID,
		AssetID:   m.AssetID,
		Owner:     m.Owner,
		SeatLabel: fmt.Sprintf("Ticket #%d", seat),
		Status:    models.TicketStatusPurchased,
		Used:      false,
		Created:   types.NowDateTime(),
	}

	if err := s.store.InsertTicket(ticket); err != nil {
		// Lost the insert race: the unique asset index rejected us.
		// The winner's row is the idempotent answer.
		if winner, lookupErr := s.store.TicketByAssetID(m.AssetID); lookupErr == nil {
			monitoring.TrackReconcile("record_mint", "duplicate")
			return winner, nil
		}
		monitoring.TrackReconcile("record_mint", "error")
		return nil, fmt.Errorf("RecordMint: %w", err)
	}

	decremented, err := s.store.DecrementAvailable(event.ID)
	if err != nil {
		// The ticket exists; the counter lags until the manual
		// reconciliation pass.
		log.Printf("RecordMint: decrement for event %s: %v", event.ID, err)
	} else if !decremented {
		log.Printf("RecordMint: event %s counter already at zero", event.ID)
	}

	if m.TransactionID != "" {
		if err := s.store.MarkTransactionSuccessful(m.TransactionID, ticket.ID, m.Signature); err != nil {
			// Bookkeeping only; the ticket stands regardless.
			log.Printf("RecordMint: link transaction %s: %v", m.TransactionID, err)
		}
	}

	monitoring.TrackReconcile("record_mint", "recorded")

	s.publisher.Publish(walletChannel(m.Owner), map[string]any{
		"type":       "mint_confirmed",
		"event_id":   event.ID,
		"asset_id":   m.AssetID,
		"ticket_id":  ticket.ID,
		"seat_label": ticket.SeatLabel,
	})

	return ticket, nil
}

// RecordTransfer updates ownership for a ticket this system already
// knows about. Repeated delivery of the same transfer is a no-op.
func (s *ReconcileService) RecordTransfer(ctx context.Context, assetID, newOwner, signature string) (*models.Ticket, error) {
	ticket, err := s.store.TicketByAssetID(assetID)
	if err != nil {
		monitoring.TrackReconcile("record_transfer", "not_found")
		return nil, err
	}

	if ticket.Owner == newOwner {
		monitoring.TrackReconcile("record_transfer", "duplicate")
		return ticket, nil
	}

	if err := s.store.UpdateTicketOwner(ticket.ID, newOwner); err != nil {
		monitoring.TrackReconcile("record_transfer", "error")
		return nil, fmt.Errorf("RecordTransfer: %w", err)
	}

	monitoring.TrackReconcile("record_transfer", "recorded")

	s.publisher.Publish(walletChannel(newOwner), map[string]any{
		"type":      "ticket_transferred",
		"asset_id":  assetID,
		"ticket_id": ticket.ID,
	})

	return s.store.TicketByID(ticket.ID)
}

// PurchaseIntent is what the caller needs to complete the mint
// externally against the issuance machine.
type PurchaseIntent struct {
	TransactionID string          `json:"transaction_id"`
	MachineID     string          `json:"issuance_machine_id"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Quantity      int             `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
}

// InitiatePurchase records a pending transaction and hands back the
// issuance-machine identifier. The availability check is advisory: the
// on-chain supply cap is the real scarcity enforcement, so nothing is
// reserved here.
func (s *ReconcileService) InitiatePurchase(ctx context.Context, eventID, wallet, paymentMethod string, quantity int) (*PurchaseIntent, error) {
	if quantity < 1 {
		return nil, status.ErrInvalidQuantity
	}

	event, err := s.store.EventByID(eventID)
	if err != nil {
		return nil, err
	}
	if !event.Active {
		return nil, status.ErrEventInactive
	}
	if event.AvailableTickets < quantity {
		return nil, status.ErrSoldOut
	}

	tx := &models.Transaction{
		ID:            utils.MustGenerateID(15),
		EventID:       event.ID,
		Wallet:        wallet,
		PaymentMethod: paymentMethod,
		Amount:        event.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Currency:      event.Currency,
		Quantity:      quantity,
		Status:        models.TransactionStatusPending,
		Created:       types.NowDateTime(),
	}
	if err := s.store.InsertTransaction(tx); err != nil {
		return nil, fmt.Errorf("InitiatePurchase: %w", err)
	}

	monitoring.TrackReconcile("initiate_purchase", "pending")

	return &PurchaseIntent{
		TransactionID: tx.ID,
		MachineID:     event.MachineID,
		Price:         event.Price,
		Currency:      event.Currency,
		Quantity:      quantity,
		Amount:        tx.Amount,
	}, nil
}
