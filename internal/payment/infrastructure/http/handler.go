package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sofa-storefront/internal/payment/application"
	"github.com/dmehra2102/sofa-storefront/internal/payment/infrastructure/mpesa"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
	"github.com/dmehra2102/sofa-storefront/pkg/httpx"
)

const maxCallbackBytes = 1 << 20

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("payment-http"),
	}
}

type initiateReq struct {
	Phone   string          `json:"phone"`
	Amount  decimal.Decimal `json:"amount"`
	OrderID string          `json:"orderId"`
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/payments/mobile-money", h.initiate)
	r.Post("/payments/mobile-money/callback", h.callback)
	r.Get("/payments/mobile-money/{id}", h.getAttempt)
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "InitiatePayment")
	defer span.End()

	var req initiateReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.service.Initiate(ctx, application.InitiateRequest{
		Phone:   req.Phone,
		Amount:  req.Amount,
		OrderID: req.OrderID,
	})
	if err != nil {
		span.RecordError(err)
		h.fail(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("payment.attempt_id", res.Attempt.ID))

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "STK push initiated successfully!",
		"attemptId": res.Attempt.ID,
		"data":      res.Ack.Raw,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal(err)
	}
	httpx.WriteError(w, r, h.log, e.WithDetail("success", false))
}

// callback receives the gateway's result for a push. The gateway only needs
// to hear that the callback arrived.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentCallback")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.Validation("Invalid callback body"))
		return
	}
	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		h.log.WarnContext(ctx, "malformed stk callback", "err", err)
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{"ResultCode": 1, "ResultDesc": "Rejected"})
		return
	}
	span.SetAttributes(attribute.String("mpesa.checkout_request_id", cb.CheckoutRequestID))

	if err := h.service.HandleCallback(ctx, cb); err != nil {
		span.RecordError(err)
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetPayment")
	defer span.End()

	a, err := h.service.GetAttempt(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"message": "Payment fetched successfully", "payment": a})
}
