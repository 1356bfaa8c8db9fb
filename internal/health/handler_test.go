// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		checks   []Named
		shutdown bool
		status   int
		body     string
	}{
		{
			name:   "all healthy",
			checks: []Named{{"database", CheckerFunc(ok)}, {"redis", CheckerFunc(ok)}},
			status: http.StatusOK,
			body:   "ok",
		},
		{
			name:   "one down",
			checks: []Named{{"database", CheckerFunc(ok)}, {"redis", CheckerFunc(down)}},
			status: http.StatusServiceUnavailable,
			body:   "degraded",
		},
		{
			name:   "missing checker",
			checks: []Named{{"database", nil}},
			status: http.StatusServiceUnavailable,
			body:   "degraded",
		},
		{
			name:     "shutting down",
			checks:   []Named{{"database", CheckerFunc(ok)}},
			shutdown: true,
			status:   http.StatusServiceUnavailable,
			body:     "shutting_down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.checks...)
			h.SetShutdown(tt.shutdown)

			r := chi.NewRouter()
			h.RegisterRoutes(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.status, rec.Code)

			var resp struct {
				Status string `json:"status"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.body, resp.Status)
		})
	}
}

func TestRunKeepsOrder(t *testing.T) {
	h := NewHandler(
		Named{"database", CheckerFunc(down)},
		Named{"redis", CheckerFunc(ok)},
	)

	checks := h.Run(context.Background())
	require.Len(t, checks, 2)
	assert.Equal(t, "database", checks[0].Name)
	assert.False(t, checks[0].Healthy)
	assert.Equal(t, "redis", checks[1].Name)
	assert.True(t, checks[1].Healthy)
}
