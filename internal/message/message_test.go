// AngelaMos | 2026
// message_test.go

package message

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/community-api/internal/config"
	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/internal/middleware"
	"github.com/carterperez-dev/community-api/internal/realtime"
)

const (
	alice = "0b6f3c1e-7a52-4d0e-9f8a-1c2d3e4f5a61"
	bob   = "5e2d1c0b-9a8f-4e7d-8c6b-5a4f3e2d1c07"
)

type fakeRepo struct {
	mu   sync.Mutex
	msgs []Message
}

func (f *fakeRepo) Create(_ context.Context, m *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.CreatedAt = time.Now()
	f.msgs = append(f.msgs, *m)
	return nil
}

func (f *fakeRepo) Conversation(_ context.Context, a, b string, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeRepo) MarkRead(_ context.Context, id, receiverID string) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.msgs {
		if f.msgs[i].ID != id {
			continue
		}
		if f.msgs[i].ReceiverID != receiverID {
			return nil, core.ErrForbidden
		}
		f.msgs[i].Read = true
		cp := f.msgs[i]
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type published struct {
	userID string
	msg    realtime.Message
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
}

func (p *recordingPublisher) Publish(_ context.Context, userID string, msg realtime.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{userID: userID, msg: msg})
	return nil
}

type statuses map[string]string

func (s statuses) CurrentStatus(_ context.Context, userID string) (string, error) {
	if st, ok := s[userID]; ok {
		return st, nil
	}
	return "", core.ErrNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendPersistsAndRelays(t *testing.T) {
	repo := &fakeRepo{}
	pub := &recordingPublisher{}
	svc := NewService(repo, pub, statuses{}, testLogger())

	m, err := svc.Send(context.Background(), alice,
		SendMessageRequest{ReceiverID: bob, Content: "  hi bob  "})
	require.NoError(t, err)
	assert.Equal(t, "hi bob", m.Content)
	assert.Equal(t, 1, repo.count())

	require.Len(t, pub.sent, 2)
	assert.Equal(t, bob, pub.sent[0].userID)
	assert.Equal(t, realtime.TypeMessage, pub.sent[0].msg.Type)
	assert.Equal(t, alice, pub.sent[1].userID)
}

func TestSendToSelfRejected(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, &recordingPublisher{}, statuses{}, testLogger())

	_, err := svc.Send(context.Background(), alice, SendMessageRequest{ReceiverID: alice, Content: "me"})
	assert.ErrorIs(t, err, ErrSelfMessage)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Zero(t, repo.count())
}

func TestConversationOldestFirst(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, &recordingPublisher{}, statuses{}, testLogger())
	ctx := context.Background()

	for _, step := range []struct{ from, to, text string }{
		{alice, bob, "one"}, {bob, alice, "two"}, {alice, bob, "three"},
	} {
		_, err := svc.Send(ctx, step.from, SendMessageRequest{ReceiverID: step.to, Content: step.text})
		require.NoError(t, err)
	}

	msgs, err := svc.Conversation(ctx, bob, alice)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "three", msgs[2].Content)
}

func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
				UserID: userID,
				Role:   middleware.RoleUser,
				Status: middleware.StatusApproved,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func passthrough(next http.Handler) http.Handler { return next }

func TestMarkReadHandler(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, &recordingPublisher{}, statuses{}, testLogger())
	m, err := svc.Send(context.Background(), alice, SendMessageRequest{ReceiverID: bob, Content: "hey"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		caller    string
		messageID string
		status    int
	}{
		{"sender cannot mark", alice, m.ID, http.StatusForbidden},
		{"unknown message", bob, uuid.New().String(), http.StatusNotFound},
		{"malformed id", bob, "nope", http.StatusNotFound},
		{"receiver marks", bob, m.ID, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(svc).RegisterRoutes(r, asUser(tt.caller), passthrough)

			req := httptest.NewRequest(http.MethodPost, "/messages/"+tt.messageID+"/read", nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.True(t, repo.msgs[0].Read)
}

func TestSendHandlerValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"ok", `{"receiverId":"` + bob + `","content":"hi"}`, http.StatusCreated},
		{"self", `{"receiverId":"` + alice + `","content":"hi"}`, http.StatusBadRequest},
		{"empty content", `{"receiverId":"` + bob + `","content":""}`, http.StatusBadRequest},
		{"bad receiver", `{"receiverId":"bob","content":"hi"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeRepo{}, &recordingPublisher{}, statuses{}, testLogger())
			r := chi.NewRouter()
			NewHandler(svc).RegisterRoutes(r, asUser(alice), passthrough)

			req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

type tokenVerifier map[string]string

func (v tokenVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	userID, ok := v[token]
	if !ok {
		return nil, core.ErrTokenInvalid
	}
	return &middleware.AccessTokenClaims{UserID: userID, Role: middleware.RoleUser}, nil
}

func newChatRelay(t *testing.T, st statuses) (*realtime.Hub, *httptest.Server, *fakeRepo) {
	t.Helper()

	hub := realtime.NewHub(testLogger())
	bus := realtime.NewLocalBus()
	require.NoError(t, bus.StartForwarder(context.Background(), hub.Deliver))

	repo := &fakeRepo{}
	svc := NewService(repo, realtime.NewPublisher(bus), st, testLogger())
	svc.RegisterInbound(hub)

	cfg := config.RealtimeConfig{
		WriteTimeout:   time.Second,
		PongTimeout:    5 * time.Second,
		PingInterval:   time.Second,
		SendBuffer:     8,
		MaxMessageSize: 16 * 1024,
	}
	r := chi.NewRouter()
	realtime.NewHandler(hub, tokenVerifier{"ta": alice, "tb": bob}, cfg, testLogger()).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
		_ = bus.Close()
	})
	return hub, srv, repo
}

func dial(t *testing.T, hub *realtime.Hub, srv *httptest.Server, token, userID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.IsOnline(userID) },
		2*time.Second, 10*time.Millisecond)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	msg, err := realtime.NewMessage(typ, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func read(t *testing.T, conn *websocket.Conn) realtime.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg realtime.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestChatFrameIsStoredAndRelayed(t *testing.T) {
	hub, srv, repo := newChatRelay(t, statuses{alice: middleware.StatusApproved})
	a := dial(t, hub, srv, "ta", alice)
	b := dial(t, hub, srv, "tb", bob)

	send(t, a, realtime.TypeChat, SendMessageRequest{ReceiverID: bob, Content: "over the wire"})

	got := read(t, b)
	require.Equal(t, realtime.TypeMessage, got.Type)
	var payload MessageResponse
	require.NoError(t, got.Decode(&payload))
	assert.Equal(t, alice, payload.SenderID)
	assert.Equal(t, "over the wire", payload.Content)

	echo := read(t, a)
	assert.Equal(t, realtime.TypeMessage, echo.Type)
	assert.Equal(t, 1, repo.count())
}

func TestTypingFrameIsRelayedNotStored(t *testing.T) {
	hub, srv, repo := newChatRelay(t, statuses{alice: middleware.StatusApproved})
	a := dial(t, hub, srv, "ta", alice)
	b := dial(t, hub, srv, "tb", bob)

	send(t, a, realtime.TypeTyping, TypingRequest{ReceiverID: bob})

	got := read(t, b)
	require.Equal(t, realtime.TypeTyping, got.Type)
	var ev TypingEvent
	require.NoError(t, got.Decode(&ev))
	assert.Equal(t, alice, ev.SenderID)
	assert.Zero(t, repo.count())
}

func TestChatFromBlockedAccountIsRefused(t *testing.T) {
	hub, srv, repo := newChatRelay(t, statuses{alice: middleware.StatusBlocked})
	a := dial(t, hub, srv, "ta", alice)

	send(t, a, realtime.TypeChat, SendMessageRequest{ReceiverID: bob, Content: "let me in"})

	got := read(t, a)
	assert.Equal(t, realtime.TypeError, got.Type)
	assert.Contains(t, string(got.Data), "not approved")
	assert.Zero(t, repo.count())
}
