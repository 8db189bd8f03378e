package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sofa-storefront/internal/cart/application"
	"github.com/dmehra2102/sofa-storefront/internal/cart/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
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
		tracer:  otel.Tracer("cart-http"),
	}
}

type addItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type quantityReq struct {
	Quantity *int `json:"quantity"`
}

type cartView struct {
	domain.Cart
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

func view(c domain.Cart) cartView {
	return cartView{Cart: c, Total: c.Total(), Count: c.Count()}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/carts", h.createCart)
	r.Get("/carts/{id}", h.getCart)
	r.Delete("/carts/{id}", h.deleteCart)
	r.Post("/carts/{id}/items", h.addItem)
	r.Delete("/carts/{id}/items", h.clearCart)
	r.Patch("/carts/{id}/items/{productId}", h.updateQuantity)
	r.Delete("/carts/{id}/items/{productId}", h.removeItem)
}

func (h *Handler) createCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCart")
	defer span.End()

	c, err := h.service.CreateCart(ctx)
	h.respond(w, r, http.StatusCreated, c, err)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	c, err := h.service.GetCart(ctx, chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	var req addItemReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("product.id", req.ProductID))
	c, err := h.service.AddItem(ctx, chi.URLParam(r, "id"), req.ProductID, req.Quantity)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCartItem")
	defer span.End()

	var req quantityReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(w, r, h.log, apperr.Validation("Quantity is required", "quantity"))
		return
	}
	c, err := h.service.UpdateQuantity(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "productId"), *req.Quantity)
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCartItem")
	defer span.End()

	c, err := h.service.RemoveItem(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClearCart")
	defer span.End()

	c, err := h.service.ClearCart(ctx, chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, c, err)
}

func (h *Handler) deleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteCart")
	defer span.End()

	if err := h.service.DeleteCart(ctx, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, c domain.Cart, err error) {
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, status, map[string]any{"cart": view(c)})
}
