// Package booking takes table reservations and party center bookings.
package booking

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Limits on reservations and party bookings.
const (
	MinNameLength   = 2
	MinPhoneLength  = 10
	MinPartySize    = 1
	MinPartyGuests  = 10
	confirmDateForm = "1/2/2006"
)

var (
	ErrInvalidName      = errors.New("name is required")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidPhone     = errors.New("a valid phone number is required")
	ErrDateRequired     = errors.New("please select a date")
	ErrTimeRequired     = errors.New("please select a time")
	ErrInvalidPartySize = errors.New("party size must be at least 1")
	ErrEventType        = errors.New("please select an event type")
	ErrTooFewGuests     = errors.New("party bookings require a minimum of 10 guests")
	ErrNegativeAmount   = errors.New("amounts must not be negative")
	ErrNegativeDue      = errors.New("advance and discount exceed the total")
)

// Event types offered for the party center.
var EventTypes = []string{"birthday", "anniversary", "corporate", "wedding", "other"}

// Reservation is a stored table reservation.
type Reservation struct {
	ID              string    `json:"id,omitempty"`
	CustomerName    string    `json:"customerName"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phoneNumber"`
	ReservationDate time.Time `json:"reservationDate"`
	ReservationTime string    `json:"reservationTime"`
	PartySize       int       `json:"partySize"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ReservationRequest is a reservation as entered by a guest.
type ReservationRequest struct {
	Name      string
	Email     string
	Phone     string
	Date      time.Time
	Time      string
	PartySize int
}

// Validate returns the first problem with r.
func (r ReservationRequest) Validate() error {
	if !validName(r.Name) {
		return ErrInvalidName
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return ErrInvalidEmail
	}
	if !validPhone(r.Phone) {
		return ErrInvalidPhone
	}
	if r.Date.IsZero() {
		return ErrDateRequired
	}
	if strings.TrimSpace(r.Time) == "" {
		return ErrTimeRequired
	}
	if r.PartySize < MinPartySize {
		return ErrInvalidPartySize
	}
	return nil
}

// PartyBooking is a stored party center booking.
type PartyBooking struct {
	ID         string    `json:"id,omitempty"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Date       time.Time `json:"date"`
	EventType  string    `json:"eventType"`
	GuestCount int       `json:"guestCount"`
	Requests   string    `json:"requests,omitempty"`
	Total      float64   `json:"total"`
	Advance    float64   `json:"advance"`
	Discount   float64   `json:"discount"`
	Due        float64   `json:"due"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PartyBookingRequest is a booking as entered by the accounts desk.
type PartyBookingRequest struct {
	Name       string
	Phone      string
	Date       time.Time
	EventType  string
	GuestCount int
	Requests   string
	Total      float64
	Advance    float64
	Discount   float64
}

// Due is the amount left to collect.
func (r PartyBookingRequest) Due() float64 {
	return r.Total - r.Advance - r.Discount
}

// Validate returns the first problem with r.
func (r PartyBookingRequest) Validate() error {
	if !validName(r.Name) {
		return ErrInvalidName
	}
	if !validPhone(r.Phone) {
		return ErrInvalidPhone
	}
	if r.Date.IsZero() {
		return ErrDateRequired
	}
	if !validEventType(r.EventType) {
		return ErrEventType
	}
	if r.GuestCount < MinPartyGuests {
		return ErrTooFewGuests
	}
	if r.Total < 0 || r.Advance < 0 || r.Discount < 0 {
		return ErrNegativeAmount
	}
	if r.Due() < 0 {
		return ErrNegativeDue
	}
	return nil
}

func validName(name string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(name)) >= MinNameLength
}

func validPhone(phone string) bool {
	return len(strings.TrimSpace(phone)) >= MinPhoneLength
}

func validEventType(t string) bool {
	for _, et := range EventTypes {
		if et == t {
			return true
		}
	}
	return false
}
