package handlers

import (
	"errors"
	"net/http"

	"nft-ticketing/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// apiError translates domain errors into the HTTP taxonomy. Nothing
// crosses the boundary unconverted.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrTicketNotFound),
		errors.Is(err, status.ErrTransactionNotFound):
		return apis.NewNotFoundError(err.Error(), err)

	case errors.Is(err, status.ErrTicketUsed):
		return apis.NewApiError(http.StatusConflict, err.Error(), err)

	case errors.Is(err, status.ErrOwnerMismatch):
		return apis.NewForbiddenError(err.Error(), err)

	case errors.Is(err, status.ErrInvalidQuantity),
		errors.Is(err, status.ErrSoldOut),
		errors.Is(err, status.ErrEventInactive):
		return apis.NewBadRequestError(err.Error(), err)

	case errors.Is(err, status.ErrLedgerUnavailable):
		return apis.NewApiError(http.StatusBadGateway, "ledger unavailable", err)

	default:
		return apis.NewApiError(http.StatusInternalServerError, "internal error", err)
	}
}
