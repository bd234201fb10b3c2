package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/princesspalace/palace/internal/docstore"
)

// Service stores reservations and party bookings.
type Service struct {
	store docstore.Store
	now   func() time.Time
}

// NewService creates a booking Service backed by store.
func NewService(store docstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Reserve stores a table reservation and returns it with the confirmation
// message shown to the guest.
func (s *Service) Reserve(ctx context.Context, actor docstore.Actor, req ReservationRequest) (*Reservation, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	r := &Reservation{
		CustomerName:    strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		PhoneNumber:     strings.TrimSpace(req.Phone),
		ReservationDate: req.Date.UTC(),
		ReservationTime: strings.TrimSpace(req.Time),
		PartySize:       req.PartySize,
		CreatedAt:       s.now().UTC(),
	}
	fields, err := docstore.ToFields(r)
	if err != nil {
		return nil, "", err
	}
	id, err := s.store.Add(ctx, actor, docstore.Reservations, fields)
	if err != nil {
		return nil, "", fmt.Errorf("storing reservation: %w", err)
	}
	r.ID = id

	slog.Info("reservation received", "reservationId", id, "partySize", r.PartySize, "date", r.ReservationDate.Format(time.DateOnly))

	msg := fmt.Sprintf("Thank you, %s! Your reservation for %d on %s at %s is confirmed.",
		r.CustomerName, r.PartySize, r.ReservationDate.Format(confirmDateForm), r.ReservationTime)
	return r, msg, nil
}

// BookParty stores a party center booking with its computed due amount.
func (s *Service) BookParty(ctx context.Context, actor docstore.Actor, req PartyBookingRequest) (*PartyBooking, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	b := &PartyBooking{
		Name:       strings.TrimSpace(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
		Date:       req.Date.UTC(),
		EventType:  req.EventType,
		GuestCount: req.GuestCount,
		Requests:   strings.TrimSpace(req.Requests),
		Total:      req.Total,
		Advance:    req.Advance,
		Discount:   req.Discount,
		Due:        req.Due(),
		CreatedAt:  s.now().UTC(),
	}
	fields, err := docstore.ToFields(b)
	if err != nil {
		return nil, "", err
	}
	id, err := s.store.Add(ctx, actor, docstore.PartyBookings, fields)
	if err != nil {
		return nil, "", fmt.Errorf("storing party booking: %w", err)
	}
	b.ID = id

	slog.Info("party booking received", "bookingId", id, "guests", b.GuestCount, "due", b.Due)

	msg := fmt.Sprintf("Thank you, %s! Your request to book the party center for %d guests on %s has been received. We will contact you shortly to confirm the details.",
		b.Name, b.GuestCount, b.Date.Format(confirmDateForm))
	return b, msg, nil
}
