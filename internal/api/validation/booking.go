package validation

import (
	"strings"

	"github.com/princesspalace/palace/internal/booking"
	"github.com/princesspalace/palace/internal/review"
)

// ReviewRequest mirrors the fields needed for review validation.
type ReviewRequest struct {
	Name       string
	Rating     int
	ReviewText string
}

// ValidateReviewRequest validates the fields of a review submission.
func ValidateReviewRequest(req ReviewRequest) []FieldError {
	var errs []FieldError

	if !minLength(req.Name, review.MinNameLength) {
		errs = append(errs, FieldError{Field: "name", Message: "Name must be at least 2 characters."})
	}
	if req.Rating < review.MinRating || req.Rating > review.MaxRating {
		errs = append(errs, FieldError{Field: "rating", Message: "rating must be between 1 and 5"})
	}
	if !minLength(req.ReviewText, review.MinTextLength) {
		errs = append(errs, FieldError{Field: "reviewText", Message: "Review must be at least 10 characters."})
	}

	return errs
}

// ReservationRequest mirrors the fields needed for reservation validation.
type ReservationRequest struct {
	Name      string
	Email     string
	Phone     string
	Date      string
	Time      string
	PartySize int
}

// ValidateReservationRequest validates the fields of a table reservation.
func ValidateReservationRequest(req ReservationRequest) []FieldError {
	var errs []FieldError

	if !minLength(req.Name, booking.MinNameLength) {
		errs = append(errs, FieldError{Field: "name", Message: "Name is required."})
	}
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Invalid email address."})
	}
	if len(strings.TrimSpace(req.Phone)) < booking.MinPhoneLength {
		errs = append(errs, FieldError{Field: "phone", Message: "Invalid phone number."})
	}
	if _, ok := ParseDate(req.Date); !ok {
		errs = append(errs, FieldError{Field: "date", Message: "date must be a date (YYYY-MM-DD)"})
	}
	if strings.TrimSpace(req.Time) == "" {
		errs = append(errs, FieldError{Field: "time", Message: "time is required"})
	}
	if req.PartySize < booking.MinPartySize {
		errs = append(errs, FieldError{Field: "partySize", Message: "Party size must be at least 1."})
	}

	return errs
}

// PartyBookingRequest mirrors the fields needed for party booking validation.
type PartyBookingRequest struct {
	Name       string
	Phone      string
	Date       string
	EventType  string
	GuestCount int
	Total      float64
	Advance    float64
	Discount   float64
}

// ValidatePartyBookingRequest validates the fields of a party center booking.
func ValidatePartyBookingRequest(req PartyBookingRequest) []FieldError {
	var errs []FieldError

	if !minLength(req.Name, booking.MinNameLength) {
		errs = append(errs, FieldError{Field: "name", Message: "Name is required."})
	}
	if len(strings.TrimSpace(req.Phone)) < booking.MinPhoneLength {
		errs = append(errs, FieldError{Field: "phone", Message: "A valid phone number is required."})
	}
	if _, ok := ParseDate(req.Date); !ok {
		errs = append(errs, FieldError{Field: "date", Message: "Please select a date for the event."})
	}
	if req.EventType == "" {
		errs = append(errs, FieldError{Field: "eventType", Message: "Please select an event type."})
	} else if !validEventType(req.EventType) {
		errs = append(errs, FieldError{Field: "eventType", Message: "eventType must be one of: " + strings.Join(booking.EventTypes, ", ")})
	}
	if req.GuestCount < booking.MinPartyGuests {
		errs = append(errs, FieldError{Field: "guestCount", Message: "Party bookings require a minimum of 10 guests."})
	}

	for _, f := range []struct {
		field string
		value float64
	}{{"total", req.Total}, {"advance", req.Advance}, {"discount", req.Discount}} {
		if f.value < 0 {
			errs = append(errs, FieldError{Field: f.field, Message: f.field + " must not be negative"})
		}
	}
	if req.Total-req.Advance-req.Discount < 0 {
		errs = append(errs, FieldError{Field: "due", Message: "advance and discount must not exceed the total"})
	}

	return errs
}

func validEventType(t string) bool {
	for _, et := range booking.EventTypes {
		if et == t {
			return true
		}
	}
	return false
}
