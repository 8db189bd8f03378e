package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sofa-storefront/internal/contact/application"
	"github.com/dmehra2102/sofa-storefront/internal/contact/domain"
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
		tracer:  otel.Tracer("contact-http"),
	}
}

type contactReq struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Service          string `json:"service"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Address          string `json:"address"`
	Message          string `json:"message"`
	PreferredContact string `json:"preferredContact"`
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/contact", h.submit)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SubmitContact")
	defer span.End()

	var req contactReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	in, err := h.service.Submit(ctx, domain.Form(req))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Contact created successfully",
		"contact": in,
	})
}
