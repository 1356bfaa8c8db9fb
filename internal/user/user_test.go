// AngelaMos | 2026
// user_test.go

package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/community-api/internal/auth"
	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/middleware"
	"github.com/carterperez-dev/community-api/internal/notification"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newFakeRepo(users ...User) *fakeRepo {
	f := &fakeRepo{users: make(map[string]*User)}
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeRepo) WithTx(core.DBTX) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, u *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

const malformedID = "not-a-uuid"

// errMalformedID is what Postgres returns when malformedID meets a uuid
// column.
var errMalformedID = &pgconn.PgError{
	Code:    "22P02",
	Message: `invalid input syntax for type uuid: "not-a-uuid"`,
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*User, error) {
	if id == malformedID {
		return nil, errMalformedID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok && !u.IsDeleted() {
		cp := *u
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) ListByUsernames(_ context.Context, names []string) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []User
	for _, name := range names {
		for _, u := range f.users {
			if u.Username == name {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, u *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id, status string) (*User, error) {
	if id == malformedID {
		return nil, errMalformedID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	u.Status = status
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpdatePassword(context.Context, string, string) error { return nil }

func (f *fakeRepo) IncrementTokenVersion(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.TokenVersion++
		return nil
	}
	return core.ErrNotFound
}

func (f *fakeRepo) SoftDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		now := time.Now()
		u.DeletedAt = &now
		return nil
	}
	return core.ErrNotFound
}

func (f *fakeRepo) List(_ context.Context, p ListUsersParams) ([]User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []User
	for _, u := range f.users {
		if p.Status != "" && u.Status != p.Status {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

type passthroughTx struct{ calls int }

func (t *passthroughTx) WithinTx(_ context.Context, fn func(core.DBTX) error) error {
	t.calls++
	return fn(nil)
}

type fakeNotifier struct {
	mu        sync.Mutex
	recorded  []notification.Input
	pushed    []*notification.Notification
	recordErr error
}

func (n *fakeNotifier) Record(
	_ context.Context,
	_ core.DBTX,
	in notification.Input,
) (*notification.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.recordErr != nil {
		return nil, n.recordErr
	}
	n.recorded = append(n.recorded, in)
	return &notification.Notification{
		ID:     "n-1",
		UserID: in.UserID,
		Title:  in.Title,
		Type:   in.Type,
	}, nil
}

func (n *fakeNotifier) Push(_ context.Context, item *notification.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushed = append(n.pushed, item)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	admin     = User{ID: "admin", Username: "root", Role: RoleAdmin, Status: StatusApproved}
	moderator = User{ID: "mod", Username: "mod", Role: RoleModerator, Status: StatusApproved}
	pending   = User{ID: "bob", Username: "bob", Role: RoleUser, Status: StatusPending}
)

func newTestService(notifier *fakeNotifier) (*Service, *fakeRepo, *passthroughTx) {
	repo := newFakeRepo(admin, moderator, pending)
	tx := &passthroughTx{}
	return NewService(repo, tx, notifier, testLogger()), repo, tx
}

func TestCreateMapsDuplicatesToAuthErrors(t *testing.T) {
	svc, _, _ := newTestService(&fakeNotifier{})
	ctx := context.Background()

	created, err := svc.Create(ctx, auth.NewUserInfo{
		Email: "New@Example.com", Username: "newbie", DisplayName: "Newbie",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", created.Email)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, RoleUser, created.Role)

	_, err = svc.Create(ctx, auth.NewUserInfo{Email: "other@example.com", Username: "newbie"})
	assert.ErrorIs(t, err, auth.ErrUsernameExists)

	_, err = svc.Create(ctx, auth.NewUserInfo{Email: "new@example.com", Username: "fresh"})
	assert.ErrorIs(t, err, auth.ErrEmailExists)
}

func TestApproveNotifiesInsideTransaction(t *testing.T) {
	notifier := &fakeNotifier{}
	svc, repo, tx := newTestService(notifier)

	u, err := svc.Approve(context.Background(), "mod", "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, u.Status)
	assert.Equal(t, StatusApproved, repo.users["bob"].Status)
	assert.Equal(t, 1, tx.calls)

	require.Len(t, notifier.recorded, 1)
	assert.Equal(t, "bob", notifier.recorded[0].UserID)
	assert.Equal(t, notification.TypeAccountApproved, notifier.recorded[0].Type)
	require.Len(t, notifier.pushed, 1)
	assert.Equal(t, "bob", notifier.pushed[0].UserID)
}

func TestBlockDoesNotRevokeTokens(t *testing.T) {
	notifier := &fakeNotifier{}
	svc, repo, _ := newTestService(notifier)

	_, err := svc.Block(context.Background(), "mod", RoleModerator, "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, repo.users["bob"].Status)
	assert.Zero(t, repo.users["bob"].TokenVersion)

	status, err := svc.CurrentStatus(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, status)

	require.Len(t, notifier.recorded, 1)
	assert.Equal(t, notification.TypeAccountBlocked, notifier.recorded[0].Type)
}

func TestBlockRules(t *testing.T) {
	tests := []struct {
		name      string
		actorID   string
		actorRole string
		targetID  string
		wantErr   error
	}{
		{"self block", "mod", RoleModerator, "mod", ErrSelfBlock},
		{"moderator blocks admin", "mod", RoleModerator, "admin", ErrBlockAdmin},
		{"admin blocks moderator", "admin", RoleAdmin, "mod", nil},
		{"unknown target", "admin", RoleAdmin, "ghost", core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			svc, _, _ := newTestService(notifier)

			_, err := svc.Block(context.Background(), tt.actorID, tt.actorRole, tt.targetID)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Len(t, notifier.pushed, 1)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, notifier.pushed)
		})
	}
}

func TestRoleChangeRevokesAccessTokens(t *testing.T) {
	svc, repo, tx := newTestService(&fakeNotifier{})
	ctx := context.Background()

	u, err := svc.UpdateUserRole(ctx, "admin", RoleUser)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, 1, u.TokenVersion)
	assert.Equal(t, RoleUser, repo.users["admin"].Role)
	assert.Equal(t, 1, repo.users["admin"].TokenVersion)
	assert.Equal(t, 1, tx.calls)

	_, err = svc.UpdateUserRole(ctx, "admin", RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.users["admin"].TokenVersion, "unchanged role keeps tokens")

	_, err = svc.UpdateUserRole(ctx, "admin", "superuser")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestModerationSkipsPushWhenRecordFails(t *testing.T) {
	notifier := &fakeNotifier{recordErr: errors.New("insert failed")}
	svc, _, _ := newTestService(notifier)

	_, err := svc.Approve(context.Background(), "admin", "bob")
	require.Error(t, err)
	assert.Empty(t, notifier.pushed)
}

func TestResolveUsernamesDropsUnknown(t *testing.T) {
	svc, _, _ := newTestService(&fakeNotifier{})

	got, err := svc.ResolveUsernames(context.Background(), []string{"bob", "nobody", "mod"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bob": "bob", "mod": "mod"}, got)
}

func asUser(id, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
				UserID: id,
				Role:   role,
				Status: StatusApproved,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func passthrough(next http.Handler) http.Handler { return next }

func TestModerationRoutes(t *testing.T) {
	tests := []struct {
		name   string
		caller string
		role   string
		path   string
		status int
	}{
		{"moderator approves", "mod", RoleModerator, "/users/bob/approve", http.StatusOK},
		{"plain user denied", "bob", RoleUser, "/users/bob/approve", http.StatusForbidden},
		{"moderator cannot block admin", "mod", RoleModerator, "/users/admin/block", http.StatusForbidden},
		{"admin blocks", "admin", RoleAdmin, "/users/bob/block", http.StatusOK},
		{"missing target", "admin", RoleAdmin, "/users/ghost/block", http.StatusNotFound},
		{"malformed approve target", "mod", RoleModerator, "/users/" + malformedID + "/approve", http.StatusNotFound},
		{"malformed block target", "admin", RoleAdmin, "/users/" + malformedID + "/block", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(&fakeNotifier{})
			r := chi.NewRouter()
			NewHandler(svc).RegisterRoutes(r, asUser(tt.caller, tt.role), passthrough)

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestUpdatePreferencesValidatesTheme(t *testing.T) {
	svc, repo, _ := newTestService(&fakeNotifier{})
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, asUser("bob", RoleUser), passthrough)

	req := httptest.NewRequest(http.MethodPut, "/users/me/preferences",
		jsonBody(t, map[string]any{"theme": "neon"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/users/me/preferences",
		jsonBody(t, map[string]any{"theme": "dark", "emailNotifications": false}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ThemeDark, repo.users["bob"].Theme)
	assert.False(t, repo.users["bob"].EmailNotifications)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}
