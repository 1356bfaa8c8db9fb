// AngelaMos | 2026
// auth_test.go

package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/community-api/internal/config"
	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/middleware"
)

func newTestJWT(t *testing.T) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(priv, pub))

	m, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     priv,
		PublicKeyPath:      pub,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "community-api",
		Audience:           "community-api",
	})
	require.NoError(t, err)
	return m
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[string]*RefreshToken)}
}

func (f *fakeTokens) Create(_ context.Context, t *RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.CreatedAt = time.Now()
	f.tokens[t.ID] = t
	return nil
}

func (f *fakeTokens) FindByHash(_ context.Context, hash string) (*RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeTokens) FindByID(_ context.Context, id string) (*RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeTokens) Rotate(_ context.Context, oldID string, next *RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.tokens[oldID]
	if !ok || old.IsUsed || old.IsRevoked() {
		return ErrTokenReuse
	}
	old.MarkAsUsed(next.ID)
	next.CreatedAt = time.Now()
	f.tokens[next.ID] = next
	return nil
}

func (f *fakeTokens) RevokeByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[id]; ok {
		t.Revoke()
		return nil
	}
	return core.ErrNotFound
}

func (f *fakeTokens) RevokeByFamilyID(_ context.Context, familyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.FamilyID == familyID {
			t.Revoke()
		}
	}
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.Revoke()
		}
	}
	return nil
}

func (f *fakeTokens) ActiveSessions(_ context.Context, userID string) ([]RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RefreshToken
	for _, t := range f.tokens {
		if t.UserID == userID && t.IsValid() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.tokens {
		if t.ExpiresAt.Before(before) {
			delete(f.tokens, id)
			n++
		}
	}
	return n, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*UserInfo)}
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, in NewUserInfo) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(in.Email) {
			return nil, ErrEmailExists
		}
		if u.Username == in.Username {
			return nil, ErrUsernameExists
		}
	}
	u := &UserInfo{
		ID:           "user-" + in.Username,
		Email:        strings.ToLower(in.Email),
		Username:     in.Username,
		DisplayName:  in.DisplayName,
		PasswordHash: in.PasswordHash,
		Role:         middleware.RoleUser,
		Status:       middleware.StatusPending,
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) IncrementTokenVersion(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.TokenVersion++
		return nil
	}
	return core.ErrNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.PasswordHash = hash
		return nil
	}
	return core.ErrNotFound
}

type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (b *memoryBlacklist) Revoke(_ context.Context, jti string, exp time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.revoked == nil {
		b.revoked = make(map[string]time.Time)
	}
	b.revoked[jti] = exp
	return nil
}

func (b *memoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[jti]
	return ok, nil
}

func newTestService(t *testing.T) (*Service, *fakeUsers, *fakeTokens) {
	t.Helper()
	users := newFakeUsers()
	tokens := newFakeTokens()
	svc := NewService(
		tokens,
		newTestJWT(t),
		users,
		&memoryBlacklist{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return svc, users, tokens
}

func register(t *testing.T, svc *Service, username string) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    username + "@example.com",
		Username: username,
		Password: "correct horse battery",
	}, "test", "127.0.0.1")
	require.NoError(t, err)
	return resp
}

func TestAccessTokenCarriesIdentityAndStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := register(t, svc, "alice")

	assert.Equal(t, middleware.StatusPending, resp.User.Status)
	assert.Equal(t, "alice", resp.User.DisplayName)

	claims, err := svc.VerifyAccessToken(context.Background(), resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, middleware.RoleUser, claims.Role)
	assert.Equal(t, middleware.StatusPending, claims.Status)
	assert.NotEmpty(t, claims.JTI)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, time.Minute)
}

func TestVerifyRejectsTokenSignedByOtherKey(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := register(t, svc, "alice")

	other := newTestJWT(t)
	_, err := other.VerifyAccessToken(context.Background(), resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestKeyIDIsStableForTheSameKey(t *testing.T) {
	dir := t.TempDir()
	cfg := config.JWTConfig{
		PrivateKeyPath:    filepath.Join(dir, "private.pem"),
		PublicKeyPath:     filepath.Join(dir, "public.pem"),
		AccessTokenExpire: time.Minute,
		Issuer:            "community-api",
		Audience:          "community-api",
	}
	require.NoError(t, GenerateKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath))

	a, err := NewJWTManager(cfg)
	require.NoError(t, err)
	b, err := NewJWTManager(cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, a.GetKeyID())
	assert.Equal(t, a.GetKeyID(), b.GetKeyID())

	token, err := a.CreateAccessToken(AccessTokenClaims{
		UserID:   "6f1c1f43-8b1b-4a57-9a39-8f0d2b0f4c11",
		Username: "alice",
		Role:     middleware.RoleUser,
		Status:   middleware.StatusApproved,
	})
	require.NoError(t, err)

	claims, err := b.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := register(t, svc, "alice")
	ctx := context.Background()

	claims, err := svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.Tokens.RefreshToken, claims))

	_, err = svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = svc.Refresh(ctx, resp.Tokens.RefreshToken, "test", "127.0.0.1")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestLogoutAllInvalidatesOutstandingAccessTokens(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := register(t, svc, "alice")
	ctx := context.Background()

	require.NoError(t, svc.LogoutAll(ctx, resp.User.ID))

	_, err := svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefreshRotationDetectsReuse(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := register(t, svc, "alice")
	ctx := context.Background()

	rotated, err := svc.Refresh(ctx, resp.Tokens.RefreshToken, "test", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEqual(t, resp.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	_, err = svc.Refresh(ctx, resp.Tokens.RefreshToken, "test", "127.0.0.1")
	assert.ErrorIs(t, err, ErrTokenReuse)

	_, err = svc.Refresh(ctx, rotated.Tokens.RefreshToken, "test", "127.0.0.1")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestConcurrentRefreshSucceedsOnce(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := register(t, svc, "carol")
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, resp.Tokens.RefreshToken, "test", "127.0.0.1")
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrTokenReuse)
	}
	assert.Equal(t, 1, ok)
}

func TestRevokeSessionRules(t *testing.T) {
	svc, _, _ := newTestService(t)
	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")
	ctx := context.Background()

	sessions, err := svc.GetActiveSessions(ctx, alice.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	assert.ErrorIs(t, svc.RevokeSession(ctx, alice.User.ID, "not-a-uuid"), core.ErrNotFound)
	assert.ErrorIs(t, svc.RevokeSession(ctx, bob.User.ID, sessions[0].ID), core.ErrForbidden)
	require.NoError(t, svc.RevokeSession(ctx, alice.User.ID, sessions[0].ID))

	sessions, err = svc.GetActiveSessions(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestLoginAllowsBlockedAccountToSignIn(t *testing.T) {
	svc, users, _ := newTestService(t)
	resp := register(t, svc, "bob")
	users.users[resp.User.ID].Status = middleware.StatusBlocked

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "bob@example.com",
		Password: "correct horse battery",
	}, "test", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, middleware.StatusBlocked, login.User.Status)

	_, err = svc.Login(context.Background(), LoginRequest{
		Email:    "bob@example.com",
		Password: "wrong password!",
	}, "test", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterHandler(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "taken")

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, middleware.Authenticator(svc))

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{
			name:   "created pending",
			body:   `{"email":"new@example.com","username":"new_user","password":"long enough pw"}`,
			status: http.StatusCreated,
		},
		{
			name:   "duplicate username",
			body:   `{"email":"other@example.com","username":"taken","password":"long enough pw"}`,
			status: http.StatusConflict,
			code:   "DUPLICATE",
		},
		{
			name:   "duplicate email",
			body:   `{"email":"taken@example.com","username":"fresh","password":"long enough pw"}`,
			status: http.StatusConflict,
			code:   "DUPLICATE",
		},
		{
			name:   "invalid username",
			body:   `{"email":"x@example.com","username":"no spaces!","password":"long enough pw"}`,
			status: http.StatusBadRequest,
			code:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code == "" {
				return
			}

			var body core.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.code == "VALIDATION_FAILED" {
				require.NotEmpty(t, body.Error.Details)
				assert.Equal(t, "username", body.Error.Details[0].Field)
			}
		})
	}
}
