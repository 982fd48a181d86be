package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nft-ticketing/internal/store"
	"nft-ticketing/models"
	"nft-ticketing/utils"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

type Provisioner interface {
	CreateCollection(ctx context.Context, name, metadataURI string) (string, error)
	DeployIssuanceMachine(ctx context.Context, collectionID string, supply int, price decimal.Decimal) (string, error)
}

// EventService provisions events on-chain and serves read projections.
type EventService struct {
	store  *store.Store
	ledger Provisioner
}

func NewEventService(st *store.Store, ledger Provisioner) *EventService {
	return &EventService{
		store:  st,
		ledger: ledger,
	}
}

type CreateEventParams struct {
	Name         string
	Description  string
	Venue        string
	StartTime    time.Time
	TotalTickets int
	Price        decimal.Decimal
	Currency     string
	MetadataURI  string
}

// CreateEvent provisions the collection asset and issuance machine,
// then records the event with a full available-ticket counter. The
// total is fixed for the lifetime of the event.
func (s *EventService) CreateEvent(ctx context.Context, p CreateEventParams) (*models.Event, error) {
	if p.Name == "" {
		return nil, errors.New("CreateEvent: name is required")
	}
	if p.TotalTickets < 1 {
		return nil, errors.New("CreateEvent: total tickets must be at least 1")
	}

	collectionID, err := s.ledger.CreateCollection(ctx, p.Name, p.MetadataURI)
	if err != nil {
		return nil, fmt.Errorf("CreateEvent: %w", err)
	}

	machineID, err := s.ledger.DeployIssuanceMachine(ctx, collectionID, p.TotalTickets, p.Price)
	if err != nil {
		return nil, fmt.Errorf("CreateEvent: %w", err)
	}

	startTime, err := types.ParseDateTime(p.StartTime)
	if err != nil {
		return nil, fmt.Errorf("CreateEvent: %w", err)
	}

	event := &models.Event{
		ID:               utils.MustGenerateID(15),
		Name:             p.Name,
		Description:      p.Description,
		Venue:            p.Venue,
		StartTime:        startTime,
		TotalTickets:     p.TotalTickets,
		AvailableTickets: p.TotalTickets,
		Price:            p.Price,
		Currency:         p.Currency,
		CollectionID:     collectionID,
		MachineID:        machineID,
		Active:           true,
		Created:          types.NowDateTime(),
		Updated:          types.NowDateTime(),
	}
	if err := s.store.InsertEvent(event); err != nil {
		return nil, fmt.Errorf("CreateEvent: %w", err)
	}

	return event, nil
}

func (s *EventService) GetEvent(id string) (*models.Event, error) {
	return s.store.EventByID(id)
}

func (s *EventService) ListEvents(activeOnly bool) ([]models.Event, error) {
	return s.store.ListEvents(activeOnly)
}

// DeactivateEvent flips the active flag. Events are never hard-deleted;
// their tickets and transactions stay put.
func (s *EventService) DeactivateEvent(id string) error {
	return s.store.DeactivateEvent(id)
}

// StaleTransactions lists pending transactions older than the given
// age, for the operator-driven reconciliation pass.
func (s *EventService) StaleTransactions(age time.Duration) ([]models.Transaction, error) {
	return s.store.ListStaleTransactions(time.Now().Add(-age))
}
