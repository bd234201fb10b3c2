package order

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/role"
)

// PlaceRequest carries the caller-supplied part of a new order.
type PlaceRequest struct {
	TableNumber   int
	Items         []Item
	PaymentMethod string
	BkashTrxID    string
	CustomerName  string
}

// Service reads and writes orders through the document store.
type Service struct {
	store docstore.Store
	now   func() time.Time
}

// NewService creates an order Service backed by store.
func NewService(store docstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// QueryFor returns the orders query visible to actor. Customers only see
// their own orders; staff see all of them.
func QueryFor(actor docstore.Actor) docstore.Query {
	q := docstore.Collection(docstore.Orders)
	if actor.System || actor.Role.Staff() {
		return q
	}
	return q.Where("userId", docstore.Equal, actor.UID)
}

// Place validates and stores a new order in Kitchen Pending. Customer
// orders are takeaway orders tied to the customer; staff orders carry the
// table they were taken at.
func (s *Service) Place(ctx context.Context, actor docstore.Actor, req PlaceRequest) (*Order, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	o := &Order{
		Status:        StatusKitchenPending,
		Items:         req.Items,
		Total:         Total(req.Items),
		CreatedAt:     s.now().UTC(),
		PaymentMethod: strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
	}

	if actor.Role == role.Customer {
		o.UserID = actor.UID
		o.UserName = strings.TrimSpace(req.CustomerName)
		o.TableNumber = TakeawayTable
		if o.PaymentMethod == "" {
			o.PaymentMethod = PaymentCOD
		}
	} else {
		if req.TableNumber < 0 {
			return nil, ErrInvalidTable
		}
		o.TableNumber = req.TableNumber
		if o.PaymentMethod == "" {
			o.PaymentMethod = PaymentCash
		}
	}

	if !ValidPaymentMethod(o.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if o.PaymentMethod == PaymentBkash {
		o.BkashTrxID = strings.TrimSpace(req.BkashTrxID)
		if o.BkashTrxID == "" {
			return nil, ErrTrxIDRequired
		}
	}

	fields, err := docstore.ToFields(o)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Add(ctx, actor, docstore.Orders, fields)
	if err != nil {
		return nil, fmt.Errorf("placing order: %w", err)
	}
	o.ID = id

	slog.Info("order placed", "orderId", id, "table", o.TableNumber, "total", o.Total, "role", actor.Role)
	return o, nil
}

// Get returns the order with id.
func (s *Service) Get(ctx context.Context, actor docstore.Actor, id string) (*Order, error) {
	doc, err := s.store.Get(ctx, actor, docstore.Path(docstore.Orders, id))
	if err != nil {
		return nil, err
	}
	return decode(*doc)
}

// List returns a one-shot snapshot of the orders visible to actor, newest first.
func (s *Service) List(ctx context.Context, actor docstore.Actor) ([]Order, error) {
	docs, err := docstore.Once(ctx, s.store, actor, QueryFor(actor))
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(docs))
	for _, d := range docs {
		o, err := decode(d)
		if err != nil {
			slog.Warn("skipping undecodable order", "orderId", d.ID, "error", err)
			continue
		}
		orders = append(orders, *o)
	}
	SortNewestFirst(orders)
	return orders, nil
}

// UpdateStatus moves an order to status. Only staff may change a status,
// and only along the allowed workflow edges.
func (s *Service) UpdateStatus(ctx context.Context, actor docstore.Actor, id string, status Status) (*Order, error) {
	path := docstore.Path(docstore.Orders, id)
	if !actor.System && !actor.Role.Staff() {
		return nil, &docstore.OpError{Op: docstore.OpUpdate, Path: path, Err: docstore.ErrPermissionDenied}
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	o, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if o.Status == status {
		return o, nil
	}
	if !CanTransition(o.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, status)
	}

	if err := s.store.Update(ctx, actor, path, docstore.Fields{"status": string(status)}); err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}
	o.Status = status

	slog.Info("order status changed", "orderId", id, "status", status, "by", actor.UID)
	return o, nil
}

func decode(d docstore.Document) (*Order, error) {
	var o Order
	if err := docstore.Decode(d.Data, &o); err != nil {
		return nil, err
	}
	o.ID = d.ID
	return &o, nil
}
