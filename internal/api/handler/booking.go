package handler

import (
	"context"
	"net/http"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/api/response"
	"github.com/princesspalace/palace/internal/api/validation"
	"github.com/princesspalace/palace/internal/booking"
	"github.com/princesspalace/palace/internal/docstore"
)

// BookingService takes reservations and party center bookings.
type BookingService interface {
	Reserve(ctx context.Context, actor docstore.Actor, req booking.ReservationRequest) (*booking.Reservation, string, error)
	BookParty(ctx context.Context, actor docstore.Actor, req booking.PartyBookingRequest) (*booking.PartyBooking, string, error)
}

type reservationRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	PartySize int    `json:"partySize"`
}

type partyBookingRequest struct {
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Date       string  `json:"date"`
	EventType  string  `json:"eventType"`
	GuestCount int     `json:"guestCount"`
	Requests   string  `json:"requests"`
	Total      float64 `json:"total"`
	Advance    float64 `json:"advance"`
	Discount   float64 `json:"discount"`
}

type reservationResponse struct {
	Reservation *booking.Reservation `json:"reservation"`
	Message     string               `json:"message"`
}

type partyBookingResponse struct {
	Booking *booking.PartyBooking `json:"booking"`
	Message string                `json:"message"`
}

// BookingHandler handles reservation and party booking endpoints.
type BookingHandler struct {
	bookings BookingService
	errs     Publisher
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookings BookingService, errs Publisher) *BookingHandler {
	return &BookingHandler{bookings: bookings, errs: errs}
}

// Reserve handles POST /reservations.
func (h *BookingHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req reservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidateReservationRequest(validation.ReservationRequest{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Date:      req.Date,
		Time:      req.Time,
		PartySize: req.PartySize,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	date, _ := validation.ParseDate(req.Date)
	res, msg, err := h.bookings.Reserve(r.Context(), middleware.Actor(r.Context()), booking.ReservationRequest{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Date:      date,
		Time:      req.Time,
		PartySize: req.PartySize,
	})
	if err != nil {
		writeError(w, r, h.errs, err, "create reservation")
		return
	}

	response.Success(w, http.StatusCreated, reservationResponse{Reservation: res, Message: msg}, requestID)
}

// BookParty handles POST /party-bookings.
func (h *BookingHandler) BookParty(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req partyBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidatePartyBookingRequest(validation.PartyBookingRequest{
		Name:       req.Name,
		Phone:      req.Phone,
		Date:       req.Date,
		EventType:  req.EventType,
		GuestCount: req.GuestCount,
		Total:      req.Total,
		Advance:    req.Advance,
		Discount:   req.Discount,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	date, _ := validation.ParseDate(req.Date)
	b, msg, err := h.bookings.BookParty(r.Context(), middleware.Actor(r.Context()), booking.PartyBookingRequest{
		Name:       req.Name,
		Phone:      req.Phone,
		Date:       date,
		EventType:  req.EventType,
		GuestCount: req.GuestCount,
		Requests:   req.Requests,
		Total:      req.Total,
		Advance:    req.Advance,
		Discount:   req.Discount,
	})
	if err != nil {
		writeError(w, r, h.errs, err, "book party center")
		return
	}

	response.Success(w, http.StatusCreated, partyBookingResponse{Booking: b, Message: msg}, requestID)
}
