package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sofa-storefront/internal/catalog/application"
	"github.com/dmehra2102/sofa-storefront/internal/catalog/domain"
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
		tracer:  otel.Tracer("catalog-http"),
	}
}

type createProductReq struct {
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	Images          []string        `json:"images"`
	Material        string          `json:"material"`
	Colors          []string        `json:"colors"`
	SeatingCapacity int             `json:"seatingCapacity"`
	Features        []string        `json:"features"`
	StockQuantity   int             `json:"stockQuantity"`
	InStock         *bool           `json:"inStock"`
	Brand           string          `json:"brand"`
	Warranty        string          `json:"warranty"`
	Reviews         []domain.Review `json:"reviews"`
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
}

// listProducts doubles as the slug lookup: GET /products?slug=...
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	if slug := r.URL.Query().Get("slug"); slug != "" {
		p, err := h.service.GetProductBySlug(ctx, slug)
		if err != nil {
			httpx.WriteError(w, r, h.log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": p})
		return
	}

	products, err := h.service.ListProducts(ctx)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  "Products fetched successfully",
		"products": products,
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	p, err := h.service.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var req createProductReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	inStock := req.StockQuantity > 0
	if req.InStock != nil {
		inStock = *req.InStock
	}

	p, err := h.service.CreateProduct(ctx, domain.Product{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		Price:           req.Price,
		Category:        domain.Category(req.Category),
		Images:          req.Images,
		Material:        domain.Material(req.Material),
		Colors:          req.Colors,
		SeatingCapacity: req.SeatingCapacity,
		Features:        req.Features,
		StockQuantity:   req.StockQuantity,
		InStock:         inStock,
		Brand:           req.Brand,
		Warranty:        req.Warranty,
		Reviews:         req.Reviews,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Product created successfully",
		"product": p,
	})
}
