package handler

import (
	"context"
	"net/http"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/api/response"
	"github.com/princesspalace/palace/internal/api/validation"
	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/review"
)

// ReviewService stores customer reviews.
type ReviewService interface {
	Submit(ctx context.Context, actor docstore.Actor, sub review.Submission) (*review.Review, error)
	List(ctx context.Context, actor docstore.Actor) ([]review.Review, error)
}

type reviewRequest struct {
	Name       string `json:"name"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"reviewText"`
}

// ReviewHandler handles review endpoints.
type ReviewHandler struct {
	reviews ReviewService
	errs    Publisher
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviews ReviewService, errs Publisher) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, errs: errs}
}

// Submit handles POST /reviews.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidateReviewRequest(validation.ReviewRequest{
		Name:       req.Name,
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	rev, err := h.reviews.Submit(r.Context(), middleware.Actor(r.Context()), review.Submission{
		Name:       req.Name,
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
	})
	if err != nil {
		writeError(w, r, h.errs, err, "submit review")
		return
	}

	response.Success(w, http.StatusCreated, rev, requestID)
}

// List handles GET /reviews.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	reviews, err := h.reviews.List(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		writeError(w, r, h.errs, err, "list reviews")
		return
	}

	response.SuccessList(w, http.StatusOK, reviews, len(reviews), requestID)
}
