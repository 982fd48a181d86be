package handlers

import (
	"net/http"
	"time"

	"nft-ticketing/internal/services"
	"nft-ticketing/security"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type EventHandler struct {
	events    *services.EventService
	reconcile *services.ReconcileService

	// adminKeyHash is the bcrypt hash of the admin API key guarding
	// provisioning endpoints.
	adminKeyHash string
}

func NewEventHandler(events *services.EventService, reconcile *services.ReconcileService, adminKeyHash string) *EventHandler {
	return &EventHandler{
		events:       events,
		reconcile:    reconcile,
		adminKeyHash: adminKeyHash,
	}
}

func (h *EventHandler) requireAdmin(e *core.RequestEvent) error {
	if h.adminKeyHash == "" {
		return nil
	}
	key := e.Request.Header.Get("X-Api-Key")
	if key == "" || !security.CheckAPIKey(h.adminKeyHash, key) {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	return nil
}

// Create - provision the collection and issuance machine, then record
// the event
func (h *EventHandler) Create(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	var req struct {
		Name         string          `json:"name"`
		Description  string          `json:"description"`
		Venue        string          `json:"venue"`
		StartTime    string          `json:"start_time"`
		TotalTickets int             `json:"total_tickets"`
		Price        decimal.Decimal `json:"price"`
		Currency     string          `json:"currency"`
		MetadataURI  string          `json:"metadata_uri"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return apis.NewBadRequestError("Invalid start_time, want RFC3339", err)
	}

	event, err := h.events.CreateEvent(e.Request.Context(), services.CreateEventParams{
		Name:         req.Name,
		Description:  req.Description,
		Venue:        req.Venue,
		StartTime:    startTime,
		TotalTickets: req.TotalTickets,
		Price:        req.Price,
		Currency:     req.Currency,
		MetadataURI:  req.MetadataURI,
	})
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, event)
}

// List - read-only projection of event rows
func (h *EventHandler) List(e *core.RequestEvent) error {
	activeOnly := e.Request.URL.Query().Get("all") == ""

	events, err := h.events.ListEvents(activeOnly)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, events)
}

func (h *EventHandler) Get(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Event ID is required", nil)
	}

	event, err := h.events.GetEvent(id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, event)
}

func (h *EventHandler) Deactivate(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Event ID is required", nil)
	}

	if err := h.events.DeactivateEvent(id); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"id": id, "active": false})
}

// PurchaseInitiate - create a pending transaction and return the
// issuance-machine identifier for the caller to mint against
func (h *EventHandler) PurchaseInitiate(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Event ID is required", nil)
	}

	var req struct {
		Wallet        string `json:"wallet"`
		PaymentMethod string `json:"payment_method"`
		Quantity      int    `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Wallet == "" {
		return apis.NewBadRequestError("wallet is required", nil)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	intent, err := h.reconcile.InitiatePurchase(e.Request.Context(), id, req.Wallet, req.PaymentMethod, req.Quantity)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, intent)
}

// StaleTransactions - pending transactions older than the given age,
// for the manual reconciliation pass
func (h *EventHandler) StaleTransactions(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	age := 24 * time.Hour
	if raw := e.Request.URL.Query().Get("age"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return apis.NewBadRequestError("Invalid age duration", err)
		}
		age = parsed
	}

	txs, err := h.events.StaleTransactions(age)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, txs)
}
