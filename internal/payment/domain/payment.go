package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
)

var (
	ErrNotFound     = errors.New("payment attempt not found")
	ErrAlreadyFinal = errors.New("payment attempt already final")
	ErrInvalidPhone = errors.New("invalid phone number")
)

// Attempt is one STK push, from the moment it is requested until the
// gateway reports an outcome or the attempt expires.
type Attempt struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"orderId,omitempty"`
	Phone             string          `json:"phone"`
	Amount            decimal.Decimal `json:"amount"`
	Status            Status          `json:"status"`
	MerchantRequestID string          `json:"merchantRequestId,omitempty"`
	CheckoutRequestID string          `json:"checkoutRequestId,omitempty"`
	ResultCode        *int            `json:"resultCode,omitempty"`
	ResultDesc        string          `json:"resultDesc,omitempty"`
	ReceiptNumber     string          `json:"receiptNumber,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func NewAttempt(id, orderID, phone string, amount decimal.Decimal, now time.Time) Attempt {
	return Attempt{
		ID:        id,
		OrderID:   orderID,
		Phone:     phone,
		Amount:    amount,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s Status) Final() bool { return s != StatusProcessing }

// Accept records the gateway's acknowledgment of the push.
func (a *Attempt) Accept(merchantRequestID, checkoutRequestID string, now time.Time) error {
	if a.Status.Final() {
		return ErrAlreadyFinal
	}
	a.MerchantRequestID = merchantRequestID
	a.CheckoutRequestID = checkoutRequestID
	a.UpdatedAt = now
	return nil
}

// Reject fails an attempt the gateway never accepted.
func (a *Attempt) Reject(reason string, now time.Time) error {
	if a.Status.Final() {
		return ErrAlreadyFinal
	}
	a.Status = StatusFailed
	a.ResultDesc = reason
	a.UpdatedAt = now
	return nil
}

// Complete applies the gateway callback. Result code 0 is the only success.
func (a *Attempt) Complete(r CallbackResult, now time.Time) error {
	if a.Status.Final() {
		return ErrAlreadyFinal
	}
	code := r.ResultCode
	a.ResultCode = &code
	a.ResultDesc = r.ResultDesc
	if r.ResultCode == 0 {
		a.Status = StatusSucceeded
		a.ReceiptNumber = r.ReceiptNumber
	} else {
		a.Status = StatusFailed
	}
	a.UpdatedAt = now
	return nil
}

func (a *Attempt) Expire(now time.Time) error {
	if a.Status.Final() {
		return ErrAlreadyFinal
	}
	a.Status = StatusExpired
	a.ResultDesc = ReasonExpired
	a.UpdatedAt = now
	return nil
}

// GatewayAmount is the whole-unit amount sent to the gateway, rounded up.
func (a Attempt) GatewayAmount() int64 {
	return a.Amount.Ceil().IntPart()
}

// NormalizePhone returns raw in the gateway's international format:
// digits only, starting with countryCode.
func NormalizePhone(raw, countryCode string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case digits == "":
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	case strings.HasPrefix(digits, countryCode):
		return digits, nil
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:], nil
	default:
		return countryCode + digits, nil
	}
}

// CallbackResult is the outcome the gateway posts for a checkout request.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            decimal.Decimal
	ReceiptNumber     string
	TransactionDate   string
	Phone             string
}
