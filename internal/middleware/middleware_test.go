package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/middleware"
)

func TestCorrelationID(t *testing.T) {
	var seen string
	handler := middleware.CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetCorrelationID(r.Context())
	}))

	t.Run("propagates caller header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.HeaderCorrelationID, "caller-id")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "caller-id", seen)
		assert.Equal(t, "caller-id", rec.Header().Get(middleware.HeaderCorrelationID))
	})

	t.Run("generates when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(middleware.HeaderCorrelationID))
	})
}

func TestContextHelpers(t *testing.T) {
	assert.Empty(t, middleware.GetCorrelationID(context.Background()))

	ctx := middleware.WithCorrelationID(context.Background(), "abc")
	assert.Equal(t, "abc", middleware.GetCorrelationID(ctx))
}
