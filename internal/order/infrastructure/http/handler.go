package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sofa-storefront/internal/order/application"
	"github.com/dmehra2102/sofa-storefront/internal/order/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

type createOrderReq struct {
	UserID         string          `json:"userId"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	DeliveryMethod string          `json:"deliveryMethod"`
	PaymentMethod  string          `json:"paymentMethod"`
	PaymentTime    string          `json:"paymentTime"`
	OrderItems     []orderItemReq  `json:"orderItems"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
}

type orderItemReq struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type orderRef struct {
	OrderNumber string `json:"orderNumber"`
	ID          string `json:"id"`
}

func (req createOrderReq) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return domain.Order{
		UserID:         req.UserID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		DeliveryMethod: domain.DeliveryMethod(req.DeliveryMethod),
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		PaymentTime:    domain.PaymentTime(req.PaymentTime),
		Items:          items,
		TotalAmount:    req.TotalAmount,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	o, err := h.service.CreateOrder(ctx, req.toDomain())
	if err != nil {
		span.RecordError(err)
		httpx.WriteError(w, r, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID), attribute.String("order.number", o.OrderNumber))

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Order placed successfully",
		"order":   orderRef{OrderNumber: o.OrderNumber, ID: o.ID},
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Order fetched successfully!",
		"order":   o,
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	q := r.URL.Query()
	orders, err := h.service.ListOrders(ctx, q.Get("userId"), q.Get("email"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Orders fetched successfully",
		"orders":  orders,
	})
}
