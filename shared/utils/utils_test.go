package utils

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("webhook", 2, time.Minute)
	cb.now = func() time.Time { return clock }

	fail := func() error { return errBoom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Call(fail), errBoom)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Call(fail), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock = clock.Add(2 * time.Minute)
	assert.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, 0, cb.Stats().Failures)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("cognito", 1, time.Minute)
	cb.now = func() time.Time { return clock }

	_ = cb.Call(func() error { return errBoom })
	clock = clock.Add(2 * time.Minute)

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	stats := cb.Stats()
	assert.Equal(t, "cognito", stats.Name)
	require.NotNil(t, stats.LastFailure)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestDomainErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
	}{
		{apperrors.Validation("bad amount"), http.StatusBadRequest},
		{apperrors.NotFound("room"), http.StatusNotFound},
		{apperrors.Conflict("closed"), http.StatusConflict},
		{apperrors.Store("commit", errBoom), http.StatusInternalServerError},
		{errBoom, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/colonies", nil)
		DomainErrorResponse(c, tt.err)

		assert.Equal(t, tt.status, w.Code, tt.err.Error())
		var body APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		if tt.status == http.StatusInternalServerError {
			assert.NotContains(t, body.Error, "boom")
		}
	}
}

func TestCacheWithoutRedis(t *testing.T) {
	saved := RedisClient
	RedisClient = nil
	defer func() { RedisClient = saved }()

	ctx := context.Background()
	assert.ErrorIs(t, CacheSet(ctx, "k", "v", time.Minute), ErrCacheUnavailable)
	_, err := CacheGet(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.NoError(t, CloseRedis())

	assert.Equal(t, HashKey("token:", "abc"), HashKey("token:", "abc"))
	assert.NotEqual(t, HashKey("token:", "abc"), HashKey("token:", "abd"))
}

func TestJWKSValidator(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{{
			Kid: "k1",
			Kty: "RSA",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer server.Close()

	validator := NewJWKSValidator(server.URL)
	ctx := context.Background()

	sign := func(kid string, exp time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()})
		token.Header["kid"] = kid
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	claims, err := validator.ValidateToken(ctx, sign("k1", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["sub"])

	_, err = validator.ValidateToken(ctx, sign("k1", time.Now().Add(-time.Hour)))
	assert.Error(t, err)

	_, err = validator.ValidateToken(ctx, sign("unknown", time.Now().Add(time.Hour)))
	assert.Error(t, err)
	assert.Equal(t, 1, fetches)
}
