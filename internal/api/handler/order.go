package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/api/response"
	"github.com/princesspalace/palace/internal/api/validation"
	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/order"
)

// OrderService places and updates orders.
type OrderService interface {
	Place(ctx context.Context, actor docstore.Actor, req order.PlaceRequest) (*order.Order, error)
	List(ctx context.Context, actor docstore.Actor) ([]order.Order, error)
	UpdateStatus(ctx context.Context, actor docstore.Actor, id string, status order.Status) (*order.Order, error)
}

type orderItemRequest struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type placeOrderRequest struct {
	Items         []orderItemRequest `json:"items"`
	TableNumber   int                `json:"tableNumber"`
	PaymentMethod string             `json:"paymentMethod"`
	BkashTrxID    string             `json:"bkashTrxId"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	orders OrderService
	errs   Publisher
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders OrderService, errs Publisher) *OrderHandler {
	return &OrderHandler{orders: orders, errs: errs}
}

// Place handles POST /orders.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]validation.OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = validation.OrderItem{Name: it.Name, Price: it.Price, Quantity: it.Quantity}
	}
	fieldErrors := validation.ValidatePlaceOrderRequest(validation.PlaceOrderRequest{
		Items:         items,
		TableNumber:   req.TableNumber,
		PaymentMethod: req.PaymentMethod,
		BkashTrxID:    req.BkashTrxID,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	place := order.PlaceRequest{
		TableNumber:   req.TableNumber,
		Items:         make([]order.Item, len(req.Items)),
		PaymentMethod: req.PaymentMethod,
		BkashTrxID:    req.BkashTrxID,
	}
	for i, it := range req.Items {
		place.Items[i] = order.Item{Name: it.Name, Price: it.Price, Quantity: it.Quantity}
	}
	if s := middleware.GetSession(r.Context()); s != nil {
		place.CustomerName = s.DisplayName
	}

	o, err := h.orders.Place(r.Context(), middleware.Actor(r.Context()), place)
	if err != nil {
		writeError(w, r, h.errs, err, "place order")
		return
	}

	response.Success(w, http.StatusCreated, o, requestID)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orders, err := h.orders.List(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		writeError(w, r, h.errs, err, "list orders")
		return
	}

	response.SuccessList(w, http.StatusOK, orders, len(orders), requestID)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fieldErrors := validation.ValidateOrderStatus(req.Status); len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), middleware.Actor(r.Context()), id, order.Status(req.Status))
	if err != nil {
		writeError(w, r, h.errs, err, "update order status")
		return
	}

	response.Success(w, http.StatusOK, o, requestID)
}
