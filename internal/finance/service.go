package finance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/order"
)

// ExpenseRequest is an expense as entered by the accounts desk.
type ExpenseRequest struct {
	Date        time.Time
	Category    Category
	Amount      float64
	Description string
	EmployeeID  string
}

// AdvanceRequest is a salary advance requested by a member of staff.
type AdvanceRequest struct {
	EmployeeName string
	Amount       float64
	Reason       string
}

// PurchaseRequest is a purchase entry as submitted by staff.
type PurchaseRequest struct {
	Date          time.Time
	Item          string
	Quantity      float64
	UOM           string
	Rate          float64
	SubmitterName string
}

// LeaveRequest is a request for time off filed by a member of staff.
type LeaveRequest struct {
	EmployeeName string
	StartDate    time.Time
	EndDate      time.Time
	Reason       string
}

// Service reads and writes the finance collections.
type Service struct {
	store docstore.Store
	now   func() time.Time
}

// NewService creates a finance Service backed by store.
func NewService(store docstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// AddEmployee puts a new employee on the payroll.
func (s *Service) AddEmployee(ctx context.Context, actor docstore.Actor, emp Employee) (*Employee, error) {
	emp.Name = strings.TrimSpace(emp.Name)
	if emp.Name == "" || emp.Salary < 0 {
		return nil, ErrInvalidEmployee
	}
	if emp.Status == "" {
		emp.Status = EmployeeActive
	}

	id, err := s.add(ctx, actor, docstore.Employees, emp)
	if err != nil {
		return nil, fmt.Errorf("adding employee: %w", err)
	}
	emp.ID = id
	return &emp, nil
}

// RecordExpense stores an expense. A salary-advance expense also opens a
// payment-pending advance for the employee it names.
func (s *Service) RecordExpense(ctx context.Context, actor docstore.Actor, req ExpenseRequest) (*Expense, *Advance, error) {
	if !req.Category.Valid() {
		return nil, nil, ErrInvalidCategory
	}
	if req.Amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	var emp *Employee
	if req.Category == CategorySalaryAdvance {
		if req.EmployeeID == "" {
			return nil, nil, ErrEmployeeRequired
		}
		var err error
		emp, err = s.employee(ctx, actor, req.EmployeeID)
		if err != nil {
			return nil, nil, err
		}
	}

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}
	exp := &Expense{
		Date:        date.UTC(),
		Category:    req.Category,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
	}
	if emp != nil {
		exp.EmployeeID = emp.ID
	}

	id, err := s.add(ctx, actor, docstore.Expenses, exp)
	if err != nil {
		return nil, nil, fmt.Errorf("recording expense: %w", err)
	}
	exp.ID = id
	slog.Info("expense recorded", "expenseId", id, "category", exp.Category, "amount", exp.Amount)

	if emp == nil {
		return exp, nil, nil
	}

	adv := &Advance{
		EmployeeID: emp.ID,
		Employee:   emp.Name,
		Amount:     exp.Amount,
		Reason:     exp.Description,
		Status:     AdvancePaymentPending,
		ExpenseID:  exp.ID,
		CreatedAt:  s.now().UTC(),
	}
	advID, err := s.add(ctx, actor, docstore.AdvanceRequest, adv)
	if err != nil {
		return nil, nil, fmt.Errorf("opening salary advance: %w", err)
	}
	adv.ID = advID
	return exp, adv, nil
}

// RequestAdvance files a salary advance request on behalf of actor.
func (s *Service) RequestAdvance(ctx context.Context, actor docstore.Actor, req AdvanceRequest) (*Advance, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	adv := &Advance{
		Employee:    strings.TrimSpace(req.EmployeeName),
		Amount:      req.Amount,
		Reason:      reason,
		Status:      AdvancePending,
		RequestedBy: actor.UID,
		CreatedAt:   s.now().UTC(),
	}
	id, err := s.add(ctx, actor, docstore.AdvanceRequest, adv)
	if err != nil {
		return nil, fmt.Errorf("requesting advance: %w", err)
	}
	adv.ID = id
	return adv, nil
}

// SetAdvanceStatus moves an advance along its workflow.
func (s *Service) SetAdvanceStatus(ctx context.Context, actor docstore.Actor, id string, status AdvanceStatus) (*Advance, error) {
	path := docstore.Path(docstore.AdvanceRequest, id)
	doc, err := s.store.Get(ctx, actor, path)
	if err != nil {
		return nil, err
	}
	var adv Advance
	if err := docstore.Decode(doc.Data, &adv); err != nil {
		return nil, err
	}
	adv.ID = doc.ID

	if !CanChangeAdvance(adv.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, adv.Status, status)
	}
	if err := s.store.Update(ctx, actor, path, docstore.Fields{"status": string(status)}); err != nil {
		return nil, fmt.Errorf("updating advance: %w", err)
	}
	adv.Status = status

	slog.Info("advance status changed", "advanceId", id, "status", status, "by", actor.UID)
	return &adv, nil
}

// SubmitPurchase records a purchase entry for approval on behalf of actor.
func (s *Service) SubmitPurchase(ctx context.Context, actor docstore.Actor, req PurchaseRequest) (*Purchase, error) {
	item, uom := strings.TrimSpace(req.Item), strings.TrimSpace(req.UOM)
	if item == "" || uom == "" {
		return nil, ErrItemRequired
	}
	if req.Quantity <= 0 || req.Rate <= 0 {
		return nil, ErrInvalidQuantity
	}

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}
	p := &Purchase{
		PurchaseDate:  date.UTC(),
		Item:          item,
		Quantity:      req.Quantity,
		UOM:           uom,
		Rate:          req.Rate,
		Total:         req.Quantity * req.Rate,
		Status:        ApprovalPending,
		SubmittedBy:   actor.UID,
		SubmitterName: strings.TrimSpace(req.SubmitterName),
		CreatedAt:     s.now().UTC(),
	}
	id, err := s.add(ctx, actor, docstore.Purchases, p)
	if err != nil {
		return nil, fmt.Errorf("submitting purchase: %w", err)
	}
	p.ID = id

	slog.Info("purchase submitted", "purchaseId", id, "item", p.Item, "total", p.Total)
	return p, nil
}

// SetPurchaseStatus approves or rejects a pending purchase entry.
func (s *Service) SetPurchaseStatus(ctx context.Context, actor docstore.Actor, id string, status ApprovalStatus) (*Purchase, error) {
	p, err := decide(ctx, s.store, actor, docstore.Purchases, id, status, func(p *Purchase) *ApprovalStatus { return &p.Status })
	if err != nil {
		return nil, err
	}
	p.ID = id

	slog.Info("purchase status changed", "purchaseId", id, "status", status, "by", actor.UID)
	return p, nil
}

// RequestLeave files a leave request on behalf of actor.
func (s *Service) RequestLeave(ctx context.Context, actor docstore.Actor, req LeaveRequest) (*Leave, error) {
	if req.StartDate.IsZero() || req.EndDate.IsZero() || req.EndDate.Before(req.StartDate) {
		return nil, ErrInvalidLeaveDates
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	l := &Leave{
		Employee:    strings.TrimSpace(req.EmployeeName),
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		Reason:      reason,
		Status:      ApprovalPending,
		RequestedBy: actor.UID,
		CreatedAt:   s.now().UTC(),
	}
	id, err := s.add(ctx, actor, docstore.LeaveRequests, l)
	if err != nil {
		return nil, fmt.Errorf("requesting leave: %w", err)
	}
	l.ID = id
	return l, nil
}

// SetLeaveStatus approves or rejects a pending leave request.
func (s *Service) SetLeaveStatus(ctx context.Context, actor docstore.Actor, id string, status ApprovalStatus) (*Leave, error) {
	l, err := decide(ctx, s.store, actor, docstore.LeaveRequests, id, status, func(l *Leave) *ApprovalStatus { return &l.Status })
	if err != nil {
		return nil, err
	}
	l.ID = id

	slog.Info("leave status changed", "leaveId", id, "status", status, "by", actor.UID)
	return l, nil
}

// decide moves the pending document at collection/id to status. field
// points at the decoded document's status, which is updated on success.
func decide[T any](ctx context.Context, store docstore.Store, actor docstore.Actor, collection, id string, status ApprovalStatus, field func(*T) *ApprovalStatus) (*T, error) {
	path := docstore.Path(collection, id)
	doc, err := store.Get(ctx, actor, path)
	if err != nil {
		return nil, err
	}
	var v T
	if err := docstore.Decode(doc.Data, &v); err != nil {
		return nil, err
	}
	current := field(&v)
	if !CanDecide(*current, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, *current, status)
	}
	if err := store.Update(ctx, actor, path, docstore.Fields{"status": string(status)}); err != nil {
		return nil, fmt.Errorf("updating %s: %w", collection, err)
	}
	*current = status
	return &v, nil
}

// Payroll lists net payable per employee.
func (s *Service) Payroll(ctx context.Context, actor docstore.Actor) ([]PayrollLine, error) {
	employees, err := list[Employee](ctx, s.store, actor, docstore.Collection(docstore.Employees).OrderBy("name", false))
	if err != nil {
		return nil, err
	}
	expenses, err := list[Expense](ctx, s.store, actor, docstore.Collection(docstore.Expenses))
	if err != nil {
		return nil, err
	}
	return Payroll(employees, expenses), nil
}

// Report computes revenue, expenses and net profit across all records.
func (s *Service) Report(ctx context.Context, actor docstore.Actor) (*Report, error) {
	orders, err := list[order.Order](ctx, s.store, actor, order.QueryFor(actor))
	if err != nil {
		return nil, err
	}
	expenses, err := list[Expense](ctx, s.store, actor, docstore.Collection(docstore.Expenses))
	if err != nil {
		return nil, err
	}
	r := Summarize(orders, expenses)
	return &r, nil
}

func (s *Service) employee(ctx context.Context, actor docstore.Actor, id string) (*Employee, error) {
	doc, err := s.store.Get(ctx, actor, docstore.Path(docstore.Employees, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrUnknownEmployee
	}
	if err != nil {
		return nil, err
	}
	var emp Employee
	if err := docstore.Decode(doc.Data, &emp); err != nil {
		return nil, err
	}
	emp.ID = doc.ID
	return &emp, nil
}

func (s *Service) add(ctx context.Context, actor docstore.Actor, collection string, v any) (string, error) {
	fields, err := docstore.ToFields(v)
	if err != nil {
		return "", err
	}
	return s.store.Add(ctx, actor, collection, fields)
}

// list decodes a one-shot snapshot of q, carrying each document ID in the
// "id" field.
func list[T any](ctx context.Context, store docstore.Store, actor docstore.Actor, q docstore.Query) ([]T, error) {
	docs, err := docstore.Once(ctx, store, actor, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		f := make(docstore.Fields, len(d.Data)+1)
		for k, v := range d.Data {
			f[k] = v
		}
		f["id"] = d.ID
		var v T
		if err := docstore.Decode(f, &v); err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", q.Collection, d.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
