package domain

import "github.com/shopspring/decimal"

const AggregateType = "payment"

const (
	EventPaymentInitiated = "PaymentInitiated"
	EventPaymentCompleted = "PaymentCompleted"
	EventPaymentFailed    = "PaymentFailed"
)

const ReasonExpired = "expired"

type PaymentInitiated struct {
	AttemptID         string          `json:"attemptId"`
	OrderID           string          `json:"orderId,omitempty"`
	Phone             string          `json:"phone"`
	Amount            decimal.Decimal `json:"amount"`
	CheckoutRequestID string          `json:"checkoutRequestId"`
}

type PaymentCompleted struct {
	AttemptID     string          `json:"attemptId"`
	OrderID       string          `json:"orderId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	ReceiptNumber string          `json:"receiptNumber"`
}

type PaymentFailed struct {
	AttemptID  string `json:"attemptId"`
	OrderID    string `json:"orderId,omitempty"`
	ResultCode *int   `json:"resultCode,omitempty"`
	Reason     string `json:"reason"`
}

// OutcomeEvent returns the event type and payload for a final attempt.
func (a Attempt) OutcomeEvent() (string, any) {
	if a.Status == StatusSucceeded {
		return EventPaymentCompleted, PaymentCompleted{
			AttemptID:     a.ID,
			OrderID:       a.OrderID,
			Amount:        a.Amount,
			ReceiptNumber: a.ReceiptNumber,
		}
	}
	return EventPaymentFailed, PaymentFailed{
		AttemptID:  a.ID,
		OrderID:    a.OrderID,
		ResultCode: a.ResultCode,
		Reason:     a.ResultDesc,
	}
}
