package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalk-edu/chalk/internal/cache"
	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/utils"
	"github.com/chalk-edu/chalk/internal/validator"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	pingE error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*models.User)}
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, repositories.ErrNotFound)
}

func (m *memUsers) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.Preferences = prefs
	return nil
}

func (m *memUsers) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (m *memUsers) Ping(ctx context.Context) error { return m.pingE }

type memSessions struct {
	mu   sync.Mutex
	byID map[string]*models.AuthSession
}

func (m *memSessions) Create(ctx context.Context, s *models.AuthSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = s
	return nil
}

func (m *memSessions) GetByID(ctx context.Context, id string) (*models.AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return s, nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type fixture struct {
	router    *gin.Engine
	users     *memUsers
	sessions  *memSessions
	publisher *events.MockEventPublisher
	redis     *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		users:     newMemUsers(),
		sessions:  &memSessions{byID: make(map[string]*models.AuthSession)},
		publisher: events.NewMockEventPublisher(logger),
		redis:     mr,
	}
	svc := NewService(
		f.users,
		f.sessions,
		cache.NewRevocationList(cache.NewCacheManager(client)),
		NewTokenManager("test-secret", time.Hour),
		f.publisher,
		validator.New(),
		logger,
	)
	f.router = NewRouter(svc, utils.NewSlogLogger(logger))
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *fixture) register(t *testing.T, email string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/users/register", "", gin.H{
		"name": "Ada", "email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (f *fixture) login(t *testing.T, email string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/users/login", "", gin.H{"email": email, "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[models.LoginResponse](t, w).Token
}

func TestServer_SessionLifecycle(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com")
	token := f.login(t, "ada@example.com")

	w := f.do(t, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.User](t, w)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, models.RoleStudent, me.Role)
	assert.Empty(t, me.PasswordHash)
	assert.NotContains(t, w.Body.String(), "password")

	w = f.do(t, http.MethodGet, "/users/me/preferences", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"dark-mode": "false"}, decode[map[string]string](t, w))

	w = f.do(t, http.MethodPut, "/users/me/preferences", token, gin.H{"dark_mode": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"dark-mode": "true"}, decode[map[string]string](t, w))

	w = f.do(t, http.MethodGet, "/users/me/preferences", token, nil)
	assert.Equal(t, map[string]string{"dark-mode": "true"}, decode[map[string]string](t, w))

	w = f.do(t, http.MethodPost, "/users/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, f.sessions.byID)
	assert.Len(t, f.redis.Keys(), 1)

	w = f.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var types []events.EventType
	for _, e := range f.publisher.GetPublishedEvents() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.EventType{events.UserRegistered, events.UserLoggedIn, events.UserLoggedOut}, types)
}

func TestServer_RegisterRejects(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com")

	tests := []struct {
		name   string
		body   gin.H
		status int
	}{
		{"duplicate email", gin.H{"name": "Ada", "email": "ADA@example.com", "password": "correct-horse"}, http.StatusConflict},
		{"bad email", gin.H{"name": "Bob", "email": "bob", "password": "correct-horse"}, http.StatusBadRequest},
		{"short password", gin.H{"name": "Bob", "email": "bob@example.com", "password": "short"}, http.StatusBadRequest},
		{"unknown role", gin.H{"name": "Bob", "email": "bob@example.com", "password": "correct-horse", "role": "ADMIN"}, http.StatusBadRequest},
		{"specialist role", gin.H{"name": "Bob", "email": "bob@example.com", "password": "correct-horse", "role": "SPECIALIST"}, http.StatusForbidden},
		{"manager role", gin.H{"name": "Bob", "email": "bob@example.com", "password": "correct-horse", "role": "INSTITUTION_MANAGER"}, http.StatusForbidden},
		{"missing fields", gin.H{"email": "bob@example.com"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/users/register", "", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[errorBody](t, w).Message)
		})
	}
}

func TestServer_RegisterDefaultsToStudent(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/users/register", "", gin.H{
		"name": "Sam", "email": "sam@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.RoleStudent, decode[models.User](t, w).Role)

	w = f.do(t, http.MethodPost, "/users/register", "", gin.H{
		"name": "Sam", "email": "sam2@example.com", "password": "correct-horse", "role": "STUDENT",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.RoleStudent, decode[models.User](t, w).Role)
}

func TestServer_LoginFailuresLookAlike(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com")

	unknown := f.do(t, http.MethodPost, "/users/login", "", gin.H{"email": "nobody@example.com", "password": "correct-horse"})
	wrong := f.do(t, http.MethodPost, "/users/login", "", gin.H{"email": "ada@example.com", "password": "wrong-horse"})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
}

func TestServer_RejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com")
	token := f.login(t, "ada@example.com")

	foreign, _, err := NewTokenManager("other", time.Hour).Issue(&models.User{ID: "u1"}, "s1")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "abc"},
		{"foreign", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/users/me", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	// a token whose session was dropped server side stops working too
	f.sessions.mu.Lock()
	f.sessions.byID = make(map[string]*models.AuthSession)
	f.sessions.mu.Unlock()
	w := f.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_UnknownRouteKeepsServing(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "cannot GET /nope", decode[errorBody](t, w).Message)

	w = f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_PanicKeepsServing(t *testing.T) {
	f := newFixture(t)
	f.router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := f.do(t, http.MethodGet, "/boom", "", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode[errorBody](t, w).Message)

	w = f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	f.users.pingE = fmt.Errorf("connection refused")
	w = f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
