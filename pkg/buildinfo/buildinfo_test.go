package buildinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	old := Version
	Version = v
	t.Cleanup(func() { Version = old })
}

func TestGet(t *testing.T) {
	withVersion(t, "v1.4.2-rc.1")
	info, err := Get("storefront")
	require.NoError(t, err)
	assert.Equal(t, "1.4.2-rc.1", info.Version)
	assert.Equal(t, uint64(1), info.Major)
	assert.Equal(t, uint64(4), info.Minor)
	assert.Equal(t, uint64(2), info.Patch)
	assert.Equal(t, "rc.1", info.Prerelease)
}

func TestGetRejectsMalformed(t *testing.T) {
	withVersion(t, "latest")
	_, err := Get("storefront")
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	withVersion(t, "2.0.0")
	info, err := Get("storefront")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	Handler(info).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"2.0.0"`)
}
