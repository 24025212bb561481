package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/colony-rent-manager/shared/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticVerifier map[string]jwt.MapClaims

func (v staticVerifier) Verify(_ context.Context, token string) (jwt.MapClaims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

// echoed is what the fake backend saw
type echoed struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

func echoBackend(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Backend", "echo")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(echoed{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			UserID: r.Header.Get("X-User-ID"),
			Email:  r.Header.Get("X-User-Email"),
			Body:   string(body),
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestGateway(t *testing.T, colonyURL, notifierURL, retryURL string) http.Handler {
	t.Helper()
	auth := middleware.NewAuthMiddlewareWith(nil, staticVerifier{
		"alice": {"sub": "user-alice", "email": "alice@example.com", "token_use": "id"},
	}, nil)
	clients := &ServiceClients{
		ColonyService:        NewServiceClient("colony", colonyURL),
		NotifierService:      NewServiceClient("notifier", notifierURL),
		RetryConsumerService: NewServiceClient("retry-consumer", retryURL),
	}
	return setupRouter(clients, auth, nil)
}

func send(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-User-ID", "spoofed")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProxy_ForwardsIdentity(t *testing.T) {
	backend := echoBackend(t)
	router := newTestGateway(t, backend.URL, backend.URL, backend.URL)

	w := send(router, http.MethodPost, "/colonies/abc/rooms/allot?as_of=2024-01-20", "alice", `{"company_name":"Acme"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "echo", w.Header().Get("X-Backend"))

	var got echoed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, echoed{
		Method: http.MethodPost,
		Path:   "/colonies/abc/rooms/allot",
		Query:  "as_of=2024-01-20",
		UserID: "user-alice",
		Email:  "alice@example.com",
		Body:   `{"company_name":"Acme"}`,
	}, got)

	w = send(router, http.MethodGet, "/colonies", "alice", "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = send(router, http.MethodGet, "/retry/stats", "alice", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "/stats", got.Path)
}

func TestProxy_RequiresAuth(t *testing.T) {
	backend := echoBackend(t)
	router := newTestGateway(t, backend.URL, backend.URL, backend.URL)

	assert.Equal(t, http.StatusUnauthorized, send(router, http.MethodGet, "/colonies", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, send(router, http.MethodGet, "/notifier/status", "mallory", "").Code)
	assert.Equal(t, http.StatusOK, send(router, http.MethodGet, "/health", "", "").Code)
}

func TestProxy_BackendDown(t *testing.T) {
	backend := echoBackend(t)
	router := newTestGateway(t, "http://127.0.0.1:1", backend.URL, backend.URL)

	assert.Equal(t, http.StatusBadGateway, send(router, http.MethodGet, "/prorate", "alice", "").Code)
}

func TestServiceStatus(t *testing.T) {
	backend := echoBackend(t)
	router := newTestGateway(t, backend.URL, "http://127.0.0.1:1", backend.URL)

	w := send(router, http.MethodGet, "/health/services", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data map[string]ServiceHealth `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data["colony_service"].Healthy)
	assert.False(t, body.Data["notifier_service"].Healthy)
	assert.NotEmpty(t, body.Data["notifier_service"].Error)
	assert.True(t, body.Data["retry_consumer_service"].Healthy)
}
