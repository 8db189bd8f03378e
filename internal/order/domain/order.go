package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "Unpaid"
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

type DeliveryMethod string

const (
	DeliveryStandard DeliveryMethod = "Standard"
	DeliveryExpress  DeliveryMethod = "Express"
)

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "Cash"
	PaymentCard  PaymentMethod = "Card"
	PaymentMpesa PaymentMethod = "Mpesa"
)

type PaymentTime string

const (
	PayNow        PaymentTime = "Pay Now"
	PayOnDelivery PaymentTime = "Pay On Delivery"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrOrderNumberTaken  = errors.New("order number taken")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// DuplicateError is returned when an existing order already covers the
// submitted one.
type DuplicateError struct {
	Existing Order
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate of order %s", e.Existing.OrderNumber)
}

type Order struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	UserID         string          `json:"userId,omitempty"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	DeliveryMethod DeliveryMethod  `json:"deliveryMethod"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	PaymentTime    PaymentTime     `json:"paymentTime"`
	Items          []OrderItem     `json:"orderItems"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// OrderItem captures product name and price at order time.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Validate checks a submitted order before anything is persisted.
func (o Order) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"name", o.Name},
		{"email", o.Email},
		{"phone", o.Phone},
		{"address", o.Address},
		{"deliveryMethod", string(o.DeliveryMethod)},
		{"paymentMethod", string(o.PaymentMethod)},
		{"paymentTime", string(o.PaymentTime)},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if o.TotalAmount.IsZero() {
		missing = append(missing, "totalAmount")
	}
	if len(missing) > 0 {
		return apperr.Validation("Please fill all the fields", missing...)
	}
	if len(o.Items) == 0 {
		return apperr.Validation("Please add items to your cart", "orderItems")
	}

	switch o.DeliveryMethod {
	case DeliveryStandard, DeliveryExpress:
	default:
		return apperr.Validation("Invalid delivery method", "deliveryMethod")
	}
	switch o.PaymentMethod {
	case PaymentCash, PaymentCard, PaymentMpesa:
	default:
		return apperr.Validation("Invalid payment method", "paymentMethod")
	}
	switch o.PaymentTime {
	case PayNow, PayOnDelivery:
	default:
		return apperr.Validation("Invalid payment time", "paymentTime")
	}
	if !o.TotalAmount.IsPositive() {
		return apperr.Validation("Total amount must be greater than zero", "totalAmount")
	}
	if !wholeCents(o.TotalAmount) {
		return apperr.Validation("Total amount must have at most 2 decimal places", "totalAmount")
	}
	for i, it := range o.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity <= 0 {
			return apperr.Validation(fmt.Sprintf("Order item %d needs a product and a positive quantity", i+1), "orderItems")
		}
		if strings.TrimSpace(it.Name) == "" {
			return apperr.Validation(fmt.Sprintf("Order item %d needs a name", i+1), "orderItems")
		}
		if it.Price.IsNegative() || !wholeCents(it.Price) {
			return apperr.Validation(fmt.Sprintf("Order item %d needs a price of at least zero with at most 2 decimal places", i+1), "orderItems")
		}
	}
	return nil
}

// wholeCents reports whether d fits the NUMERIC(14,2) columns unchanged.
func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// Fingerprint identifies the set of orders the duplicate guard compares a
// submission against.
func (o Order) Fingerprint() string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(o.Email)),
		strings.TrimSpace(o.Phone),
		o.TotalAmount.String(),
	}, "|")
}

// Covers reports whether o matches candidate on email, phone and total and
// contains every (product, quantity) pair candidate was submitted with.
func (o Order) Covers(candidate Order) bool {
	if !strings.EqualFold(o.Email, candidate.Email) || o.Phone != candidate.Phone || !o.TotalAmount.Equal(candidate.TotalAmount) {
		return false
	}
	type pair struct {
		productID string
		quantity  int
	}
	have := make(map[pair]struct{}, len(o.Items))
	for _, it := range o.Items {
		have[pair{it.ProductID, it.Quantity}] = struct{}{}
	}
	for _, it := range candidate.Items {
		if _, ok := have[pair{it.ProductID, it.Quantity}]; !ok {
			return false
		}
	}
	return true
}

// FindDuplicate returns the first existing order that covers candidate.
func FindDuplicate(existing []Order, candidate Order) (Order, bool) {
	for _, o := range existing {
		if o.Covers(candidate) {
			return o, true
		}
	}
	return Order{}, false
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXX using random characters from r,
// or crypto/rand when r is nil.
func NewOrderNumber(now time.Time, r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	base := big.NewInt(int64(len(orderNumberAlphabet)))
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(r, base)
		if err != nil {
			return "", fmt.Errorf("order number: %w", err)
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix), nil
}

func ParseStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", apperr.Validation("Invalid order status", "status")
}

var transitions = map[OrderStatus][]OrderStatus{
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// TransitionTo moves the order to next. Moving to the current status is a
// no-op and reports false.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) (bool, error) {
	if o.Status == next {
		return false, nil
	}
	if !o.Status.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = now
	return true, nil
}
