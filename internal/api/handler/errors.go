package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/api/response"
	"github.com/princesspalace/palace/internal/booking"
	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/finance"
	"github.com/princesspalace/palace/internal/order"
	"github.com/princesspalace/palace/internal/review"
)

// Publisher receives store failures for the developer error stream.
type Publisher interface {
	Publish(err error)
}

var invalidInput = []error{
	order.ErrNoItems, order.ErrInvalidItem, order.ErrInvalidTable, order.ErrInvalidPaymentMethod,
	order.ErrTrxIDRequired, order.ErrInvalidStatus,
	review.ErrInvalidName, review.ErrInvalidRating, review.ErrTextTooShort,
	booking.ErrInvalidName, booking.ErrInvalidEmail, booking.ErrInvalidPhone, booking.ErrDateRequired,
	booking.ErrTimeRequired, booking.ErrInvalidPartySize, booking.ErrEventType, booking.ErrTooFewGuests,
	booking.ErrNegativeAmount, booking.ErrNegativeDue,
	finance.ErrInvalidCategory, finance.ErrInvalidAmount, finance.ErrEmployeeRequired,
	finance.ErrUnknownEmployee, finance.ErrInvalidEmployee, finance.ErrReasonRequired,
	finance.ErrItemRequired, finance.ErrInvalidQuantity, finance.ErrInvalidLeaveDates,
}

var conflicts = []error{order.ErrInvalidTransition, finance.ErrInvalidTransition}

// writeError maps a service error to its response. Store failures are also
// published to errs.
func writeError(w http.ResponseWriter, r *http.Request, errs Publisher, err error, action string) {
	requestID := middleware.GetRequestID(r.Context())

	for _, target := range invalidInput {
		if errors.Is(err, target) {
			response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", target.Error(), requestID)
			return
		}
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			response.Err(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), requestID)
			return
		}
	}

	var oe *docstore.OpError
	if errors.As(err, &oe) && errs != nil {
		errs.Publish(oe)
	}

	switch {
	case errors.Is(err, docstore.ErrPermissionDenied):
		response.Err(w, http.StatusForbidden, "PERMISSION_DENIED", "Missing or insufficient permissions", requestID)
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, docstore.ErrInvalidPath):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Not found", requestID)
	default:
		middleware.Logger(r.Context()).Error("failed to "+action, "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action, requestID)
	}
}

// decodeJSON reads a JSON body of at most 1 MiB into v. It writes the
// error response and returns false when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}
