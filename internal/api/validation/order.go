package validation

import (
	"fmt"
	"strings"

	"github.com/princesspalace/palace/internal/order"
)

// OrderItem mirrors one line of a place order request.
type OrderItem struct {
	Name     string
	Price    float64
	Quantity int
}

// PlaceOrderRequest mirrors the fields needed for place order validation.
type PlaceOrderRequest struct {
	Items         []OrderItem
	TableNumber   int
	PaymentMethod string
	BkashTrxID    string
}

// ValidatePlaceOrderRequest validates the fields of a place order request.
func ValidatePlaceOrderRequest(req PlaceOrderRequest) []FieldError {
	var errs []FieldError

	if len(req.Items) == 0 {
		errs = append(errs, FieldError{Field: "items", Message: "at least one item is required"})
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.Name) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("items[%d].name", i), Message: "name is required"})
		}
		if it.Price < 0 {
			errs = append(errs, FieldError{Field: fmt.Sprintf("items[%d].price", i), Message: "price must not be negative"})
		}
		if it.Quantity < 1 {
			errs = append(errs, FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be at least 1"})
		}
	}

	if req.TableNumber < 0 {
		errs = append(errs, FieldError{Field: "tableNumber", Message: "tableNumber must not be negative"})
	}

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method != "" && !order.ValidPaymentMethod(method) {
		errs = append(errs, FieldError{Field: "paymentMethod", Message: "paymentMethod must be one of: bkash, card, cash, cod"})
	}
	if method == order.PaymentBkash && strings.TrimSpace(req.BkashTrxID) == "" {
		errs = append(errs, FieldError{Field: "bkashTrxId", Message: "Please enter your bKash transaction ID to proceed."})
	}

	return errs
}

// ValidateOrderStatus validates the status of an update order status request.
func ValidateOrderStatus(status string) []FieldError {
	if status == "" {
		return []FieldError{{Field: "status", Message: "status is required"}}
	}
	if !order.Status(status).Valid() {
		return []FieldError{{Field: "status", Message: "status must be one of: Kitchen Pending, Served, Ready to Pay, Completed"}}
	}
	return nil
}
