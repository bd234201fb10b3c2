// Package finance keeps the restaurant books: expenses, staff salary
// advances, purchase entries, leave requests, payroll and the profit report.
package finance

import (
	"errors"
	"time"

	"github.com/princesspalace/palace/internal/order"
)

// Category classifies an expense.
type Category string

const (
	CategoryGroceries     Category = "groceries"
	CategoryUtilities     Category = "utilities"
	CategoryMaintenance   Category = "maintenance"
	CategoryMarketing     Category = "marketing"
	CategorySalaryAdvance Category = "salary-advance"
	CategoryOther         Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGroceries, CategoryUtilities, CategoryMaintenance,
		CategoryMarketing, CategorySalaryAdvance, CategoryOther:
		return true
	}
	return false
}

// AdvanceStatus is the state of a salary advance.
type AdvanceStatus string

const (
	AdvancePending         AdvanceStatus = "Pending"
	AdvanceApproved        AdvanceStatus = "Approved"
	AdvanceRejected        AdvanceStatus = "Rejected"
	AdvancePaid            AdvanceStatus = "Paid"
	AdvancePaymentPending  AdvanceStatus = "Payment Pending"
	AdvancePaymentRejected AdvanceStatus = "Payment Rejected"
)

var advanceTransitions = map[AdvanceStatus][]AdvanceStatus{
	AdvancePending:        {AdvanceApproved, AdvanceRejected},
	AdvanceApproved:       {AdvancePaid},
	AdvancePaymentPending: {AdvancePaid, AdvancePaymentRejected},
}

// CanChangeAdvance reports whether an advance in from may move to to.
// Staff requests are approved or rejected; recorded advances are paid out
// or rejected at payment time.
func CanChangeAdvance(from, to AdvanceStatus) bool {
	for _, s := range advanceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApprovalStatus is the state of a purchase entry or a leave request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

// CanDecide reports whether an item in from may move to to. Only pending
// items are approved or rejected, and a decision is final.
func CanDecide(from, to ApprovalStatus) bool {
	return from == ApprovalPending && (to == ApprovalApproved || to == ApprovalRejected)
}

// Employee statuses.
const (
	EmployeeActive  = "Active"
	EmployeeOnLeave = "On Leave"
)

var (
	ErrInvalidCategory   = errors.New("unknown expense category")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrEmployeeRequired  = errors.New("salary advances require an employee")
	ErrUnknownEmployee   = errors.New("employee not found")
	ErrInvalidEmployee   = errors.New("employee name is required and salary must not be negative")
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrReasonRequired    = errors.New("a reason is required")
	ErrItemRequired      = errors.New("purchase item and unit of measure are required")
	ErrInvalidQuantity   = errors.New("quantity and rate must be greater than zero")
	ErrInvalidLeaveDates = errors.New("leave needs a start date and an end date on or after it")
)

// Employee is a member of staff on the payroll.
type Employee struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	Salary float64 `json:"salary"`
	Status string  `json:"status"`
}

// Expense is a recorded outgoing payment.
type Expense struct {
	ID          string    `json:"id,omitempty"`
	Date        time.Time `json:"date"`
	Category    Category  `json:"category"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	EmployeeID  string    `json:"employeeId,omitempty"`
}

// Advance is a salary advance, either requested by staff or recorded by
// the accounts desk as a salary-advance expense.
type Advance struct {
	ID          string        `json:"id,omitempty"`
	EmployeeID  string        `json:"employeeId,omitempty"`
	Employee    string        `json:"employee"`
	Amount      float64       `json:"amount"`
	Reason      string        `json:"reason"`
	Status      AdvanceStatus `json:"status"`
	RequestedBy string        `json:"requestedBy,omitempty"`
	ExpenseID   string        `json:"expenseId,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Purchase is an item bought by staff and submitted for approval. Total is
// always Quantity times Rate.
type Purchase struct {
	ID            string         `json:"id,omitempty"`
	PurchaseDate  time.Time      `json:"purchaseDate"`
	Item          string         `json:"item"`
	Quantity      float64        `json:"quantity"`
	UOM           string         `json:"uom"`
	Rate          float64        `json:"rate"`
	Total         float64        `json:"total"`
	Status        ApprovalStatus `json:"status"`
	SubmittedBy   string         `json:"submittedBy"`
	SubmitterName string         `json:"submitterName,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Leave is a staff member's request for time off. Both dates are inclusive.
type Leave struct {
	ID          string         `json:"id,omitempty"`
	Employee    string         `json:"employee"`
	StartDate   time.Time      `json:"startDate"`
	EndDate     time.Time      `json:"endDate"`
	Reason      string         `json:"reason"`
	Status      ApprovalStatus `json:"status"`
	RequestedBy string         `json:"requestedBy"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// PayrollLine is one employee's pay for the period.
type PayrollLine struct {
	EmployeeID string  `json:"employeeId"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Status     string  `json:"status"`
	Salary     float64 `json:"salary"`
	Advances   float64 `json:"advances"`
	NetPayable float64 `json:"netPayable"`
}

// Report summarizes revenue against expenses.
type Report struct {
	Orders    int     `json:"orders"`
	Revenue   float64 `json:"revenue"`
	Expenses  float64 `json:"expenses"`
	NetProfit float64 `json:"netProfit"`
}

// Payroll computes net payable per employee as salary minus the salary
// advance expenses recorded against them.
func Payroll(employees []Employee, expenses []Expense) []PayrollLine {
	advances := make(map[string]float64)
	for _, e := range expenses {
		if e.Category == CategorySalaryAdvance && e.EmployeeID != "" {
			advances[e.EmployeeID] += e.Amount
		}
	}

	lines := make([]PayrollLine, 0, len(employees))
	for _, emp := range employees {
		adv := advances[emp.ID]
		lines = append(lines, PayrollLine{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			Role:       emp.Role,
			Status:     emp.Status,
			Salary:     emp.Salary,
			Advances:   adv,
			NetPayable: emp.Salary - adv,
		})
	}
	return lines
}

// Summarize totals order revenue and expenses.
func Summarize(orders []order.Order, expenses []Expense) Report {
	var r Report
	for _, o := range orders {
		r.Orders++
		r.Revenue += o.Total
	}
	for _, e := range expenses {
		r.Expenses += e.Amount
	}
	r.NetProfit = r.Revenue - r.Expenses
	return r
}
