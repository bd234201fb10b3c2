package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/api/response"
	"github.com/princesspalace/palace/internal/api/validation"
	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/finance"
)

// FinanceService runs the accounts desk.
type FinanceService interface {
	AddEmployee(ctx context.Context, actor docstore.Actor, emp finance.Employee) (*finance.Employee, error)
	RecordExpense(ctx context.Context, actor docstore.Actor, req finance.ExpenseRequest) (*finance.Expense, *finance.Advance, error)
	RequestAdvance(ctx context.Context, actor docstore.Actor, req finance.AdvanceRequest) (*finance.Advance, error)
	SetAdvanceStatus(ctx context.Context, actor docstore.Actor, id string, status finance.AdvanceStatus) (*finance.Advance, error)
	SubmitPurchase(ctx context.Context, actor docstore.Actor, req finance.PurchaseRequest) (*finance.Purchase, error)
	SetPurchaseStatus(ctx context.Context, actor docstore.Actor, id string, status finance.ApprovalStatus) (*finance.Purchase, error)
	RequestLeave(ctx context.Context, actor docstore.Actor, req finance.LeaveRequest) (*finance.Leave, error)
	SetLeaveStatus(ctx context.Context, actor docstore.Actor, id string, status finance.ApprovalStatus) (*finance.Leave, error)
	Payroll(ctx context.Context, actor docstore.Actor) ([]finance.PayrollLine, error)
	Report(ctx context.Context, actor docstore.Actor) (*finance.Report, error)
}

type employeeRequest struct {
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	Salary float64 `json:"salary"`
	Status string  `json:"status"`
}

type expenseRequest struct {
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	EmployeeID  string  `json:"employeeId"`
}

type advanceRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type purchaseRequest struct {
	PurchaseDate string  `json:"purchaseDate"`
	Item         string  `json:"item"`
	Quantity     float64 `json:"quantity"`
	UOM          string  `json:"uom"`
	Rate         float64 `json:"rate"`
}

type leaveRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

type expenseResponse struct {
	Expense *finance.Expense `json:"expense"`
	Advance *finance.Advance `json:"advance,omitempty"`
}

// FinanceHandler handles the accounts desk endpoints.
type FinanceHandler struct {
	finance FinanceService
	errs    Publisher
}

// NewFinanceHandler creates a new FinanceHandler.
func NewFinanceHandler(svc FinanceService, errs Publisher) *FinanceHandler {
	return &FinanceHandler{finance: svc, errs: errs}
}

// Report handles GET /finance/report.
func (h *FinanceHandler) Report(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	report, err := h.finance.Report(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		writeError(w, r, h.errs, err, "build finance report")
		return
	}

	response.Success(w, http.StatusOK, report, requestID)
}

// Payroll handles GET /finance/payroll.
func (h *FinanceHandler) Payroll(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	lines, err := h.finance.Payroll(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		writeError(w, r, h.errs, err, "build payroll")
		return
	}

	response.SuccessList(w, http.StatusOK, lines, len(lines), requestID)
}

// AddEmployee handles POST /finance/employees.
func (h *FinanceHandler) AddEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req employeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidateEmployeeRequest(validation.EmployeeRequest{
		Name:   req.Name,
		Role:   req.Role,
		Salary: req.Salary,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	emp, err := h.finance.AddEmployee(r.Context(), middleware.Actor(r.Context()), finance.Employee{
		Name:   req.Name,
		Role:   req.Role,
		Salary: req.Salary,
		Status: req.Status,
	})
	if err != nil {
		writeError(w, r, h.errs, err, "add employee")
		return
	}

	response.Success(w, http.StatusCreated, emp, requestID)
}

// RecordExpense handles POST /finance/expenses.
func (h *FinanceHandler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidateExpenseRequest(validation.ExpenseRequest{
		Date:       req.Date,
		Category:   req.Category,
		Amount:     req.Amount,
		EmployeeID: req.EmployeeID,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	var date time.Time
	if req.Date != "" {
		date, _ = validation.ParseDate(req.Date)
	}
	exp, adv, err := h.finance.RecordExpense(r.Context(), middleware.Actor(r.Context()), finance.ExpenseRequest{
		Date:        date,
		Category:    finance.Category(req.Category),
		Amount:      req.Amount,
		Description: req.Description,
		EmployeeID:  req.EmployeeID,
	})
	if err != nil {
		writeError(w, r, h.errs, err, "record expense")
		return
	}

	response.Success(w, http.StatusCreated, expenseResponse{Expense: exp, Advance: adv}, requestID)
}

// RequestAdvance handles POST /finance/advances. The advance is filed under
// the signed-in staff member's name.
func (h *FinanceHandler) RequestAdvance(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req advanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidateAdvanceRequest(validation.AdvanceRequest{
		Amount: req.Amount,
		Reason: req.Reason,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	adv, err := h.finance.RequestAdvance(r.Context(), middleware.Actor(r.Context()), finance.AdvanceRequest{
		EmployeeName: displayName(r),
		Amount:       req.Amount,
		Reason:       req.Reason,
	})
	if err != nil {
		writeError(w, r, h.errs, err, "request advance")
		return
	}

	response.Success(w, http.StatusCreated, adv, requestID)
}

// SetAdvanceStatus handles PATCH /finance/advances/{id}.
func (h *FinanceHandler) SetAdvanceStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fieldErrors := validation.ValidateAdvanceStatus(req.Status); len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	adv, err := h.finance.SetAdvanceStatus(r.Context(), middleware.Actor(r.Context()), id, finance.AdvanceStatus(req.Status))
	if err != nil {
		writeError(w, r, h.errs, err, "update advance")
		return
	}

	response.Success(w, http.StatusOK, adv, requestID)
}

// SubmitPurchase handles POST /finance/purchases. The entry is submitted
// under the signed-in staff member's name.
func (h *FinanceHandler) SubmitPurchase(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req purchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidatePurchaseRequest(validation.PurchaseRequest{
		Date:     req.PurchaseDate,
		Item:     req.Item,
		Quantity: req.Quantity,
		UOM:      req.UOM,
		Rate:     req.Rate,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	var date time.Time
	if req.PurchaseDate != "" {
		date, _ = validation.ParseDate(req.PurchaseDate)
	}
	p, err := h.finance.SubmitPurchase(r.Context(), middleware.Actor(r.Context()), finance.PurchaseRequest{
		Date:          date,
		Item:          req.Item,
		Quantity:      req.Quantity,
		UOM:           req.UOM,
		Rate:          req.Rate,
		SubmitterName: displayName(r),
	})
	if err != nil {
		writeError(w, r, h.errs, err, "submit purchase")
		return
	}

	response.Success(w, http.StatusCreated, p, requestID)
}

// SetPurchaseStatus handles PATCH /finance/purchases/{id}.
func (h *FinanceHandler) SetPurchaseStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fieldErrors := validation.ValidateDecision(req.Status); len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	p, err := h.finance.SetPurchaseStatus(r.Context(), middleware.Actor(r.Context()), id, finance.ApprovalStatus(req.Status))
	if err != nil {
		writeError(w, r, h.errs, err, "update purchase")
		return
	}

	response.Success(w, http.StatusOK, p, requestID)
}

// RequestLeave handles POST /finance/leave-requests.
func (h *FinanceHandler) RequestLeave(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req leaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidateLeaveRequest(validation.LeaveRequest{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	start, _ := validation.ParseDate(req.StartDate)
	end, _ := validation.ParseDate(req.EndDate)
	l, err := h.finance.RequestLeave(r.Context(), middleware.Actor(r.Context()), finance.LeaveRequest{
		EmployeeName: displayName(r),
		StartDate:    start,
		EndDate:      end,
		Reason:       req.Reason,
	})
	if err != nil {
		writeError(w, r, h.errs, err, "request leave")
		return
	}

	response.Success(w, http.StatusCreated, l, requestID)
}

// SetLeaveStatus handles PATCH /finance/leave-requests/{id}.
func (h *FinanceHandler) SetLeaveStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fieldErrors := validation.ValidateDecision(req.Status); len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	l, err := h.finance.SetLeaveStatus(r.Context(), middleware.Actor(r.Context()), id, finance.ApprovalStatus(req.Status))
	if err != nil {
		writeError(w, r, h.errs, err, "update leave request")
		return
	}

	response.Success(w, http.StatusOK, l, requestID)
}

func displayName(r *http.Request) string {
	if s := middleware.GetSession(r.Context()); s != nil {
		return s.DisplayName
	}
	return ""
}
