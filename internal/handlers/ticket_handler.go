package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"nft-ticketing/internal/services"
	"nft-ticketing/models"
	"nft-ticketing/security"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TicketHandler struct {
	reconcile *services.ReconcileService
	verify    *services.VerifyService
	auth      *security.WebhookAuth
	limiter   *security.RateLimiter
}

func NewTicketHandler(reconcile *services.ReconcileService, verify *services.VerifyService, auth *security.WebhookAuth, limiter *security.RateLimiter) *TicketHandler {
	return &TicketHandler{
		reconcile: reconcile,
		verify:    verify,
		auth:      auth,
		limiter:   limiter,
	}
}

// readSignedBody reads the request body and checks its HMAC signature.
func (h *TicketHandler) readSignedBody(e *core.RequestEvent, out any) error {
	body, err := io.ReadAll(e.Request.Body)
	if err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if !h.auth.VerifyBody(body, e.Request.Header.Get("X-Signature")) {
		return apis.NewUnauthorizedError("Invalid signature", nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	return nil
}

// MintSuccess - client- or watcher-reported mint, reconciled
// idempotently
func (h *TicketHandler) MintSuccess(e *core.RequestEvent) error {
	var req struct {
		EventID       string `json:"event_id"`
		AssetID       string `json:"asset_id"`
		Owner         string `json:"owner"`
		Signature     string `json:"signature"`
		TransactionID string `json:"transaction_id"`
	}
	if err := h.readSignedBody(e, &req); err != nil {
		return err
	}
	if req.EventID == "" || req.AssetID == "" || req.Owner == "" {
		return apis.NewBadRequestError("event_id, asset_id and owner are required", nil)
	}

	ticket, err := h.reconcile.RecordMint(e.Request.Context(), models.MintObserved{
		EventID:       req.EventID,
		AssetID:       req.AssetID,
		Owner:         req.Owner,
		Signature:     req.Signature,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id":  ticket.ID,
		"seat_label": ticket.SeatLabel,
		"status":     ticket.Status,
	})
}

// TransferUpdate - ownership change reported by the external notifier
func (h *TicketHandler) TransferUpdate(e *core.RequestEvent) error {
	var req struct {
		AssetID   string `json:"asset_id"`
		NewOwner  string `json:"new_owner"`
		Signature string `json:"signature"`
	}
	if err := h.readSignedBody(e, &req); err != nil {
		return err
	}
	if req.AssetID == "" || req.NewOwner == "" {
		return apis.NewBadRequestError("asset_id and new_owner are required", nil)
	}

	ticket, err := h.reconcile.RecordTransfer(e.Request.Context(), req.AssetID, req.NewOwner, req.Signature)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id": ticket.ID,
		"owner":     ticket.Owner,
		"status":    ticket.Status,
	})
}

// Verify - entry gate: live ownership check plus the one-way used latch
func (h *TicketHandler) Verify(e *core.RequestEvent) error {
	if h.limiter != nil && !h.limiter.Allow(e.Request.Context(), "verify:"+e.RealIP()) {
		return apis.NewApiError(http.StatusTooManyRequests, "Too many requests", nil)
	}

	var req struct {
		AssetID       string `json:"asset_id"`
		AssertedOwner string `json:"asserted_owner"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.AssetID == "" {
		return apis.NewBadRequestError("asset_id is required", nil)
	}

	ticketID, err := h.verify.VerifyAndConsume(e.Request.Context(), req.AssetID, req.AssertedOwner)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id": ticketID,
		"status":    models.TicketStatusUsed,
	})
}
