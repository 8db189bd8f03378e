package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad", "email"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("no"), http.StatusUnauthorized},
		{"not found", NotFound("gone"), http.StatusNotFound},
		{"conflict", Conflict("duplicate_order", "dup"), http.StatusConflict},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"upstream with status", UpstreamGateway("gateway_rejected", http.StatusBadRequest, nil), http.StatusBadRequest},
		{"upstream without status", UpstreamAuth(0, nil), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("create order: %w", NotFound("x")), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithDetail(t *testing.T) {
	err := Conflict("duplicate_order", "dup").WithDetail("existingOrder", map[string]string{"id": "1"})
	assert.Equal(t, map[string]string{"id": "1"}, err.Details["existingOrder"])
}
