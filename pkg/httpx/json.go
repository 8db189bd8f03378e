package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

const maxBodyBytes = 1 << 20

func init() {
	// Prices and totals go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto a status code and a JSON body of the form
// {"message": ..., "code": ..., "fields": [...], <details>}.
// Causes of internal errors are logged and never written to the client.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal(err)
	}

	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	} else {
		log.WarnContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "code", e.Code, "err", err)
	}

	body := map[string]any{
		"message": e.Message,
		"code":    e.Code,
	}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	for k, v := range e.Details {
		body[k] = v
	}
	WriteJSON(w, status, body)
}

// DecodeJSON reads a single JSON document from the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required")
		}
		return apperr.Validation("Invalid request body")
	}
	return nil
}
