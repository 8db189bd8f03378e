package domain

import "github.com/shopspring/decimal"

const AggregateType = "order"

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderPaymentStatus = "OrderPaymentStatusChanged"
)

type OrderCreated struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	Email       string          `json:"email"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	PaymentTime PaymentTime     `json:"paymentTime"`
	Items       []OrderItem     `json:"orderItems"`
}

type OrderStatusChanged struct {
	OrderID string      `json:"orderId"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

type OrderPaymentStatusChanged struct {
	OrderID string        `json:"orderId"`
	From    PaymentStatus `json:"from"`
	To      PaymentStatus `json:"to"`
	Reason  string        `json:"reason,omitempty"`
}

// PaymentOutcome is what the payment context reports about an order.
type PaymentOutcome struct {
	AttemptID string
	Succeeded bool
	Reason    string
}

const ReasonExpired = "expired"
