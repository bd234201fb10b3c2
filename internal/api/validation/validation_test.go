package validation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/princesspalace/palace/internal/api/validation"
)

func assertFieldError(t *testing.T, errs []validation.FieldError, field, contains string) {
	t.Helper()
	for _, e := range errs {
		if e.Field == field {
			assert.Contains(t, e.Message, contains)
			return
		}
	}
	t.Errorf("expected field error on %q containing %q, got none", field, contains)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, ok := validation.ParseDate("2024-08-15")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), d)

	_, ok = validation.ParseDate("2024-08-15T18:00:00+06:00")
	assert.True(t, ok)

	_, ok = validation.ParseDate("15/08/2024")
	assert.False(t, ok)
}

// --- auth ---

func TestSignIn_Required(t *testing.T) {
	t.Parallel()
	errs := validation.ValidateSignInRequest(validation.SignInRequest{Email: "  "})
	assertFieldError(t, errs, "email", "required")
	assertFieldError(t, errs, "password", "required")
}

func TestRegister(t *testing.T) {
	t.Parallel()

	assert.Empty(t, validation.ValidateRegisterRequest(validation.RegisterRequest{
		DisplayName: "Rina", Email: "rina@example.com", Password: "secret1",
	}))

	errs := validation.ValidateRegisterRequest(validation.RegisterRequest{
		DisplayName: "R", Email: "Rina <rina@example.com>", Password: "12345",
	})
	assertFieldError(t, errs, "displayName", "Name is required")
	assertFieldError(t, errs, "email", "Invalid email")
	assertFieldError(t, errs, "password", "at least 6")
}

// --- orders ---

func TestPlaceOrder(t *testing.T) {
	t.Parallel()

	valid := validation.PlaceOrderRequest{Items: []validation.OrderItem{{Name: "Tea", Price: 30, Quantity: 2}}}
	assert.Empty(t, validation.ValidatePlaceOrderRequest(valid))

	errs := validation.ValidatePlaceOrderRequest(validation.PlaceOrderRequest{})
	assertFieldError(t, errs, "items", "at least one")

	errs = validation.ValidatePlaceOrderRequest(validation.PlaceOrderRequest{
		Items:         []validation.OrderItem{{Name: " ", Price: -1, Quantity: 0}},
		TableNumber:   -2,
		PaymentMethod: "cheque",
	})
	assertFieldError(t, errs, "items[0].name", "required")
	assertFieldError(t, errs, "items[0].price", "negative")
	assertFieldError(t, errs, "items[0].quantity", "at least 1")
	assertFieldError(t, errs, "tableNumber", "negative")
	assertFieldError(t, errs, "paymentMethod", "one of")

	errs = validation.ValidatePlaceOrderRequest(validation.PlaceOrderRequest{
		Items:         valid.Items,
		PaymentMethod: "bkash",
	})
	assertFieldError(t, errs, "bkashTrxId", "transaction ID")
}

func TestOrderStatus(t *testing.T) {
	t.Parallel()
	assert.Empty(t, validation.ValidateOrderStatus("Ready to Pay"))
	assertFieldError(t, validation.ValidateOrderStatus(""), "status", "required")
	assertFieldError(t, validation.ValidateOrderStatus("Cancelled"), "status", "one of")
}

// --- reviews and bookings ---

func TestReview(t *testing.T) {
	t.Parallel()

	assert.Empty(t, validation.ValidateReviewRequest(validation.ReviewRequest{Name: "Rina", Rating: 5, ReviewText: "Wonderful food"}))

	errs := validation.ValidateReviewRequest(validation.ReviewRequest{Name: "R", Rating: 0, ReviewText: "ok"})
	assertFieldError(t, errs, "name", "at least 2")
	assertFieldError(t, errs, "rating", "between 1 and 5")
	assertFieldError(t, errs, "reviewText", "at least 10")
}

func TestReservation(t *testing.T) {
	t.Parallel()

	valid := validation.ReservationRequest{
		Name: "Rina", Email: "rina@example.com", Phone: "01712345678",
		Date: "2024-08-15", Time: "7:00 PM", PartySize: 2,
	}
	assert.Empty(t, validation.ValidateReservationRequest(valid))

	errs := validation.ValidateReservationRequest(validation.ReservationRequest{Email: "nope", Phone: "123", Date: "tomorrow"})
	assertFieldError(t, errs, "name", "required")
	assertFieldError(t, errs, "email", "Invalid")
	assertFieldError(t, errs, "phone", "Invalid")
	assertFieldError(t, errs, "date", "YYYY-MM-DD")
	assertFieldError(t, errs, "time", "required")
	assertFieldError(t, errs, "partySize", "at least 1")
}

func TestPartyBooking(t *testing.T) {
	t.Parallel()

	valid := validation.PartyBookingRequest{
		Name: "Karim", Phone: "01812345678", Date: "2024-08-15", EventType: "wedding",
		GuestCount: 120, Total: 100000, Advance: 40000, Discount: 5000,
	}
	assert.Empty(t, validation.ValidatePartyBookingRequest(valid))

	errs := validation.ValidatePartyBookingRequest(validation.PartyBookingRequest{
		EventType: "rave", GuestCount: 9, Total: 100, Advance: 80, Discount: 30,
	})
	assertFieldError(t, errs, "eventType", "one of")
	assertFieldError(t, errs, "guestCount", "minimum of 10")
	assertFieldError(t, errs, "due", "exceed")

	errs = validation.ValidatePartyBookingRequest(validation.PartyBookingRequest{Discount: -1})
	assertFieldError(t, errs, "eventType", "select an event type")
	assertFieldError(t, errs, "discount", "negative")
}

// --- finance ---

func TestExpense(t *testing.T) {
	t.Parallel()

	assert.Empty(t, validation.ValidateExpenseRequest(validation.ExpenseRequest{Category: "utilities", Amount: 5000}))

	errs := validation.ValidateExpenseRequest(validation.ExpenseRequest{Date: "yesterday", Category: "salary-advance"})
	assertFieldError(t, errs, "date", "YYYY-MM-DD")
	assertFieldError(t, errs, "amount", "greater than zero")
	assertFieldError(t, errs, "employeeId", "required")

	errs = validation.ValidateExpenseRequest(validation.ExpenseRequest{Category: "bribes", Amount: 1})
	assertFieldError(t, errs, "category", "one of")
}

func TestEmployeeAndAdvance(t *testing.T) {
	t.Parallel()

	errs := validation.ValidateEmployeeRequest(validation.EmployeeRequest{Salary: -1})
	assertFieldError(t, errs, "name", "required")
	assertFieldError(t, errs, "role", "required")
	assertFieldError(t, errs, "salary", "negative")

	errs = validation.ValidateAdvanceRequest(validation.AdvanceRequest{})
	assertFieldError(t, errs, "amount", "greater than zero")
	assertFieldError(t, errs, "reason", "required")

	assert.Empty(t, validation.ValidateAdvanceStatus("Paid"))
	assertFieldError(t, validation.ValidateAdvanceStatus("Pending"), "status", "one of")
	assertFieldError(t, validation.ValidateAdvanceStatus(""), "status", "required")
}

func TestPurchaseAndLeave(t *testing.T) {
	t.Parallel()

	errs := validation.ValidatePurchaseRequest(validation.PurchaseRequest{Date: "yesterday", Quantity: -1})
	assertFieldError(t, errs, "purchaseDate", "YYYY-MM-DD")
	assertFieldError(t, errs, "item", "required")
	assertFieldError(t, errs, "quantity", "greater than zero")
	assertFieldError(t, errs, "uom", "required")
	assertFieldError(t, errs, "rate", "greater than zero")
	assert.Empty(t, validation.ValidatePurchaseRequest(validation.PurchaseRequest{Item: "Rice", Quantity: 25, UOM: "kg", Rate: 80}))

	errs = validation.ValidateLeaveRequest(validation.LeaveRequest{StartDate: "2024-08-05", EndDate: "2024-08-01"})
	assertFieldError(t, errs, "endDate", "before startDate")
	assertFieldError(t, errs, "reason", "required")
	errs = validation.ValidateLeaveRequest(validation.LeaveRequest{Reason: "Vacation"})
	assertFieldError(t, errs, "startDate", "YYYY-MM-DD")
	assertFieldError(t, errs, "endDate", "YYYY-MM-DD")
	assert.Empty(t, validation.ValidateLeaveRequest(validation.LeaveRequest{StartDate: "2024-07-25", EndDate: "2024-07-25", Reason: "Sick leave"}))

	assert.Empty(t, validation.ValidateDecision("Rejected"))
	assertFieldError(t, validation.ValidateDecision("Pending"), "status", "one of")
	assertFieldError(t, validation.ValidateDecision(""), "status", "required")
}
