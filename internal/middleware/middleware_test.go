// AngelaMos | 2026
// middleware_test.go

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/community-api/internal/core"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type verifierFunc func(ctx context.Context, token string) (*AccessTokenClaims, error)

func (f verifierFunc) VerifyAccessToken(ctx context.Context, token string) (*AccessTokenClaims, error) {
	return f(ctx, token)
}

type statusMap map[string]string

func (m statusMap) CurrentStatus(_ context.Context, userID string) (string, error) {
	s, found := m[userID]
	if !found {
		return "", fmt.Errorf("lookup: %w", core.ErrNotFound)
	}
	return s, nil
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body core.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func withUser(r *http.Request, userID, role string) *http.Request {
	return r.WithContext(WithClaims(r.Context(), &AccessTokenClaims{UserID: userID, Role: role}))
}

func TestAuthenticator(t *testing.T) {
	verifier := verifierFunc(func(_ context.Context, token string) (*AccessTokenClaims, error) {
		switch token {
		case "good":
			return &AccessTokenClaims{UserID: "u1", Role: RoleUser}, nil
		case "old":
			return nil, fmt.Errorf("verify: %w", core.ErrTokenExpired)
		case "revoked":
			return nil, fmt.Errorf("verify: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("verify: %w", core.ErrTokenInvalid)
	})

	var seen string
	h := Authenticator(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", "Bearer old", http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"revoked", "Bearer revoked", http.StatusUnauthorized, "TOKEN_REVOKED"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"valid", "bearer good", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
				return
			}
			assert.Equal(t, "u1", seen)
		})
	}
}

func TestRequireApproved(t *testing.T) {
	h := RequireApproved(statusMap{
		"approved": StatusApproved,
		"blocked":  StatusBlocked,
		"pending":  StatusPending,
	})(okHandler)

	tests := []struct {
		userID string
		status int
		code   string
	}{
		{"approved", http.StatusOK, ""},
		{"blocked", http.StatusForbidden, "ACCOUNT_BLOCKED"},
		{"pending", http.StatusForbidden, "ACCOUNT_PENDING"},
		{"deleted", http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			req := withUser(httptest.NewRequest(http.MethodPost, "/", nil), tt.userID, RoleUser)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
			}
		})
	}
}

func TestRequireStaff(t *testing.T) {
	h := RequireStaff(okHandler)

	for role, want := range map[string]int{
		RoleAdmin:     http.StatusOK,
		RoleModerator: http.StatusOK,
		RoleUser:      http.StatusForbidden,
		"":            http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if role != "" {
			req = withUser(req, "u1", role)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "/api/posts/{id}", normalizeEndpoint("/api/posts/6f1c1f43-8b1b-4a57-9a39-8f0d2b0f4c11"))
	assert.Equal(t, "/api/courses/{id}/progress", normalizeEndpoint("/api/courses/42/progress"))
	assert.Equal(t, "/api/hashtags/trending", normalizeEndpoint("/api/hashtags/trending"))
}

func TestRateLimiterFallsBackWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	h := NewRateLimiter(rdb, RateLimitConfig{Limit: PerMinute(60, 2)}).Handler(okHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)

		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRequestIDIsPropagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}
