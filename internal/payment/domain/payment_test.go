package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"0712345678":       "254712345678",
		"254712345678":     "254712345678",
		"+254 712 345 678": "254712345678",
		"712345678":        "254712345678",
		"0712-345-678":     "254712345678",
	}
	for in, want := range tests {
		got, err := NormalizePhone(in, "254")
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizePhone("phone", "254")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestAttemptLifecycle(t *testing.T) {
	now := time.Now()
	a := NewAttempt("a1", "o1", "254712345678", decimal.RequireFromString("1499.20"), now)
	assert.Equal(t, int64(1500), a.GatewayAmount())

	require.NoError(t, a.Accept("m-1", "ws_CO_1", now))
	assert.Equal(t, StatusProcessing, a.Status)

	require.NoError(t, a.Complete(CallbackResult{CheckoutRequestID: "ws_CO_1", ResultCode: 0, ResultDesc: "ok", ReceiptNumber: "NLJ7RT61SV"}, now))
	assert.Equal(t, StatusSucceeded, a.Status)
	assert.Equal(t, "NLJ7RT61SV", a.ReceiptNumber)

	assert.ErrorIs(t, a.Complete(CallbackResult{ResultCode: 1032}, now), ErrAlreadyFinal)
	assert.ErrorIs(t, a.Expire(now), ErrAlreadyFinal)
	assert.ErrorIs(t, a.Reject("boom", now), ErrAlreadyFinal)

	typ, payload := a.OutcomeEvent()
	assert.Equal(t, EventPaymentCompleted, typ)
	assert.Equal(t, "NLJ7RT61SV", payload.(PaymentCompleted).ReceiptNumber)
}

func TestAttemptFailureOutcomes(t *testing.T) {
	now := time.Now()

	cancelled := NewAttempt("a1", "o1", "254712345678", decimal.NewFromInt(10), now)
	require.NoError(t, cancelled.Complete(CallbackResult{ResultCode: 1032, ResultDesc: "Request cancelled by user"}, now))
	assert.Equal(t, StatusFailed, cancelled.Status)
	typ, payload := cancelled.OutcomeEvent()
	assert.Equal(t, EventPaymentFailed, typ)
	assert.Equal(t, 1032, *payload.(PaymentFailed).ResultCode)
	assert.Equal(t, "Request cancelled by user", payload.(PaymentFailed).Reason)

	expired := NewAttempt("a2", "o1", "254712345678", decimal.NewFromInt(10), now)
	require.NoError(t, expired.Expire(now))
	_, payload = expired.OutcomeEvent()
	assert.Equal(t, ReasonExpired, payload.(PaymentFailed).Reason)
	assert.Equal(t, int64(10), expired.GatewayAmount())
}
