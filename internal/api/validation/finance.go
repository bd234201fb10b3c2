package validation

import (
	"strings"

	"github.com/princesspalace/palace/internal/finance"
)

// ExpenseRequest mirrors the fields needed for expense validation.
type ExpenseRequest struct {
	Date       string
	Category   string
	Amount     float64
	EmployeeID string
}

// ValidateExpenseRequest validates the fields of an expense entry.
func ValidateExpenseRequest(req ExpenseRequest) []FieldError {
	var errs []FieldError

	if req.Date != "" {
		if _, ok := ParseDate(req.Date); !ok {
			errs = append(errs, FieldError{Field: "date", Message: "date must be a date (YYYY-MM-DD)"})
		}
	}
	if req.Category == "" {
		errs = append(errs, FieldError{Field: "category", Message: "category is required"})
	} else if !finance.Category(req.Category).Valid() {
		errs = append(errs, FieldError{Field: "category", Message: "category must be one of: groceries, utilities, maintenance, marketing, salary-advance, other"})
	}
	if req.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "amount must be greater than zero"})
	}
	if finance.Category(req.Category) == finance.CategorySalaryAdvance && strings.TrimSpace(req.EmployeeID) == "" {
		errs = append(errs, FieldError{Field: "employeeId", Message: "employeeId is required for salary advances"})
	}

	return errs
}

// EmployeeRequest mirrors the fields needed for employee validation.
type EmployeeRequest struct {
	Name   string
	Role   string
	Salary float64
}

// ValidateEmployeeRequest validates the fields of a new employee.
func ValidateEmployeeRequest(req EmployeeRequest) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if strings.TrimSpace(req.Role) == "" {
		errs = append(errs, FieldError{Field: "role", Message: "role is required"})
	}
	if req.Salary < 0 {
		errs = append(errs, FieldError{Field: "salary", Message: "salary must not be negative"})
	}

	return errs
}

// AdvanceRequest mirrors the fields needed for salary advance validation.
type AdvanceRequest struct {
	Amount float64
	Reason string
}

// ValidateAdvanceRequest validates the fields of a salary advance request.
func ValidateAdvanceRequest(req AdvanceRequest) []FieldError {
	var errs []FieldError

	if req.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "amount must be greater than zero"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		errs = append(errs, FieldError{Field: "reason", Message: "reason is required"})
	}

	return errs
}

// ValidateAdvanceStatus validates the status of an advance status change.
func ValidateAdvanceStatus(status string) []FieldError {
	switch finance.AdvanceStatus(status) {
	case finance.AdvanceApproved, finance.AdvanceRejected, finance.AdvancePaid, finance.AdvancePaymentRejected:
		return nil
	case "":
		return []FieldError{{Field: "status", Message: "status is required"}}
	}
	return []FieldError{{Field: "status", Message: "status must be one of: Approved, Rejected, Paid, Payment Rejected"}}
}

// PurchaseRequest mirrors the fields needed for purchase entry validation.
type PurchaseRequest struct {
	Date     string
	Item     string
	Quantity float64
	UOM      string
	Rate     float64
}

// ValidatePurchaseRequest validates the fields of a purchase entry.
func ValidatePurchaseRequest(req PurchaseRequest) []FieldError {
	var errs []FieldError

	if req.Date != "" {
		if _, ok := ParseDate(req.Date); !ok {
			errs = append(errs, FieldError{Field: "purchaseDate", Message: "purchaseDate must be a date (YYYY-MM-DD)"})
		}
	}
	if strings.TrimSpace(req.Item) == "" {
		errs = append(errs, FieldError{Field: "item", Message: "item is required"})
	}
	if req.Quantity <= 0 {
		errs = append(errs, FieldError{Field: "quantity", Message: "quantity must be greater than zero"})
	}
	if strings.TrimSpace(req.UOM) == "" {
		errs = append(errs, FieldError{Field: "uom", Message: "uom is required"})
	}
	if req.Rate <= 0 {
		errs = append(errs, FieldError{Field: "rate", Message: "rate must be greater than zero"})
	}

	return errs
}

// LeaveRequest mirrors the fields needed for leave request validation.
type LeaveRequest struct {
	StartDate string
	EndDate   string
	Reason    string
}

// ValidateLeaveRequest validates the fields of a leave request.
func ValidateLeaveRequest(req LeaveRequest) []FieldError {
	var errs []FieldError

	start, startOK := ParseDate(req.StartDate)
	if !startOK {
		errs = append(errs, FieldError{Field: "startDate", Message: "startDate must be a date (YYYY-MM-DD)"})
	}
	end, endOK := ParseDate(req.EndDate)
	if !endOK {
		errs = append(errs, FieldError{Field: "endDate", Message: "endDate must be a date (YYYY-MM-DD)"})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, FieldError{Field: "endDate", Message: "endDate must not be before startDate"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		errs = append(errs, FieldError{Field: "reason", Message: "reason is required"})
	}

	return errs
}

// ValidateDecision validates the status of a purchase or leave decision.
func ValidateDecision(status string) []FieldError {
	switch finance.ApprovalStatus(status) {
	case finance.ApprovalApproved, finance.ApprovalRejected:
		return nil
	case "":
		return []FieldError{{Field: "status", Message: "status is required"}}
	}
	return []FieldError{{Field: "status", Message: "status must be one of: Approved, Rejected"}}
}
