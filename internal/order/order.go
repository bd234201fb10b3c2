// Package order places restaurant orders and moves them through the
// kitchen-to-payment workflow.
package order

import (
	"errors"
	"sort"
	"time"
)

// Status is the position of an order in the service workflow.
type Status string

const (
	StatusKitchenPending Status = "Kitchen Pending"
	StatusServed         Status = "Served"
	StatusReadyToPay     Status = "Ready to Pay"
	StatusCompleted      Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusKitchenPending, StatusServed, StatusReadyToPay, StatusCompleted:
		return true
	}
	return false
}

// Open reports whether the order can still change.
func (s Status) Open() bool {
	return s != StatusCompleted
}

// CanTransition reports whether an order may move from one status to another.
// Setting the current status again is always allowed.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	switch to {
	case StatusServed:
		return from == StatusKitchenPending
	case StatusReadyToPay:
		return from == StatusKitchenPending || from == StatusServed
	case StatusCompleted:
		return from.Open()
	}
	return false
}

// Payment methods accepted at checkout and at the till.
const (
	PaymentCOD   = "cod"
	PaymentBkash = "bkash"
	PaymentCash  = "cash"
	PaymentCard  = "card"
)

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCOD, PaymentBkash, PaymentCash, PaymentCard:
		return true
	}
	return false
}

// TakeawayTable marks storefront and takeaway orders.
const TakeawayTable = 0

var (
	// ErrNoItems is returned when an order has no line items.
	ErrNoItems = errors.New("order must contain at least one item")

	// ErrInvalidItem is returned for a line item without a name, with a
	// negative price, or with a non-positive quantity.
	ErrInvalidItem = errors.New("invalid order item")

	// ErrInvalidTable is returned for a negative table number.
	ErrInvalidTable = errors.New("table number must not be negative")

	// ErrInvalidPaymentMethod is returned for an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("unknown payment method")

	// ErrTrxIDRequired is returned for bKash payments without a transaction ID.
	ErrTrxIDRequired = errors.New("bKash transaction ID is required")

	// ErrInvalidStatus is returned for an unknown status.
	ErrInvalidStatus = errors.New("unknown order status")

	// ErrInvalidTransition is returned when the workflow forbids a status change.
	ErrInvalidTransition = errors.New("order status change not allowed")
)

// Item is one line of an order.
type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Order is a placed order as stored in the orders collection.
type Order struct {
	ID            string    `json:"id,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	UserName      string    `json:"userName,omitempty"`
	TableNumber   int       `json:"tableNumber"`
	Status        Status    `json:"status"`
	Items         []Item    `json:"items"`
	Total         float64   `json:"total"`
	CreatedAt     time.Time `json:"createdAt"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	BkashTrxID    string    `json:"bkashTrxId,omitempty"`
}

// Takeaway reports whether the order was not placed at a table.
func (o *Order) Takeaway() bool {
	return o.TableNumber == TakeawayTable
}

// Total sums price times quantity over items.
func Total(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// SortNewestFirst orders by creation time, most recent first. Ties keep
// their relative order.
func SortNewestFirst(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func validateItems(items []Item) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for _, it := range items {
		if it.Name == "" || it.Price < 0 || it.Quantity <= 0 {
			return ErrInvalidItem
		}
	}
	return nil
}
