package services

import (
	"context"
	"fmt"

	"nft-ticketing/internal/status"
	"nft-ticketing/internal/store"
	"nft-ticketing/monitoring"
	"nft-ticketing/utils"
)

type OwnerLookup interface {
	CurrentOwner(ctx context.Context, assetID string) (string, error)
}

// VerifyService answers "is this ticket valid for entry right now".
// The live on-chain lookup is the safety net for transfers the watcher
// missed: a stale stored owner never admits the wrong wallet.
type VerifyService struct {
	store     *store.Store
	ledger    OwnerLookup
	breaker   *utils.CircuitBreaker
	publisher Publisher
}

func NewVerifyService(st *store.Store, ledger OwnerLookup, publisher Publisher) *VerifyService {
	return &VerifyService{
		store:     st,
		ledger:    ledger,
		breaker:   utils.NewCircuitBreaker("ledger-owner-lookup"),
		publisher: publisher,
	}
}

// VerifyAndConsume checks live on-chain ownership and flips the ticket's
// one-way used latch. Returns the ticket id on success.
func (s *VerifyService) VerifyAndConsume(ctx context.Context, assetID, assertedOwner string) (string, error) {
	ticket, err := s.store.TicketByAssetID(assetID)
	if err != nil {
		monitoring.TrackVerification("not_found")
		return "", err
	}

	if ticket.Used {
		monitoring.TrackVerification("already_used")
		return "", status.ErrTicketUsed
	}

	checkOwner := ticket.Owner
	if assertedOwner != "" {
		checkOwner = assertedOwner
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.ledger.CurrentOwner(ctx, assetID)
	})
	if err != nil {
		monitoring.TrackVerification("upstream_error")
		return "", fmt.Errorf("%w: %v", status.ErrLedgerUnavailable, err)
	}

	liveOwner := result.(string)
	if liveOwner == "" || liveOwner != checkOwner {
		monitoring.TrackVerification("owner_mismatch")
		return "", status.ErrOwnerMismatch
	}

	if err := s.store.MarkTicketUsed(ticket.ID); err != nil {
		// Lost a race against a concurrent verification; the latch
		// already flipped.
		monitoring.TrackVerification("already_used")
		return "", err
	}

	monitoring.TrackVerification("consumed")

	s.publisher.Publish(walletChannel(liveOwner), map[string]any{
		"type":      "ticket_used",
		"asset_id":  assetID,
		"ticket_id": ticket.ID,
	})

	return ticket.ID, nil
}
