package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sofa-storefront/internal/account/application"
	"github.com/dmehra2102/sofa-storefront/internal/account/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
	"github.com/dmehra2102/sofa-storefront/pkg/httpx"
)

type ctxKey struct{}

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("account-http"),
	}
}

type registerReq struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AcceptTerms bool   `json:"acceptTerms"`
}

type loginReq struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireSession)
		r.Get("/wishlist", h.getWishlist)
		r.Post("/wishlist", h.addToWishlist)
		r.Delete("/wishlist", h.removeFromWishlist)
	})
}

// RequireSession rejects requests without a live bearer token and stores
// the session's user id on the request context.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.service.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			httpx.WriteError(w, r, h.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Register")
	defer span.End()

	var req registerReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	u, err := h.service.Register(ctx, domain.Registration{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		AcceptTerms: req.AcceptTerms,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully!",
		"user":    u,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Login")
	defer span.End()

	var req loginReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	provider := req.Provider
	if provider == "" {
		provider = application.ProviderCredentials
	}
	sess, err := h.service.Login(ctx, provider, domain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"id":      sess.User.ID,
		"name":    sess.User.Username,
		"email":   sess.User.Email,
		"token":   sess.Token,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Logout")
	defer span.End()

	if token := bearerToken(r); token != "" {
		if err := h.service.Logout(ctx, token); err != nil {
			httpx.WriteError(w, r, h.log, err)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetWishlist")
	defer span.End()

	products, err := h.service.Wishlist(ctx, UserID(ctx))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"wishlist": products})
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddToWishlist")
	defer span.End()

	productID, err := decodeProductID(r)
	if err == nil {
		err = h.service.AddToWishlist(ctx, UserID(ctx), productID)
	}
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveFromWishlist")
	defer span.End()

	productID, err := decodeProductID(r)
	if err == nil {
		err = h.service.RemoveFromWishlist(ctx, UserID(ctx), productID)
	}
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Product removed from wishlist",
	})
}

// decodeProductID accepts either a bare JSON string or {"productId": "..."}.
func decodeProductID(r *http.Request) (string, error) {
	var raw json.RawMessage
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		if e, ok := apperr.As(err); ok && e.Message == "Request body is required" {
			return "", apperr.Validation("Product ID is missing", "productId")
		}
		return "", err
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var body struct {
		ProductID string `json:"productId"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", apperr.Validation("Product ID is missing", "productId")
	}
	return body.ProductID, nil
}
