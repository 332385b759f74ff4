package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(role string) Claims {
	return Claims{
		UserID: "user-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "wedding-market",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newAuthRouter(roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(JWTMiddleware(&JWTConfig{Secret: testSecret, Issuer: "wedding-market", SkipPaths: []string{"/health"}}))
	r.Use(RequireRole(roles...))
	handler := func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id)
	}
	r.GET("/protected", handler)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestJWTMiddleware(t *testing.T) {
	router := newAuthRouter("admin", "vendor")

	expired := validClaims("admin")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims("admin")
	wrongIssuer.Issuer = "someone-else"

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, "other", validClaims("admin")), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, expired), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, testSecret, wrongIssuer), http.StatusUnauthorized},
		{"role not allowed", "Bearer " + signToken(t, testSecret, validClaims("couple")), http.StatusForbidden},
		{"allowed", "Bearer " + signToken(t, testSecret, validClaims("vendor")), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestJWTMiddleware_SubjectFallback(t *testing.T) {
	router := newAuthRouter("admin")
	claims := validClaims("admin")
	claims.UserID = ""
	claims.Subject = "subject-7"

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, claims))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "subject-7", w.Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
}

// memoryStore is an in-process IdempotencyStore
type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case string:
		return x
	}
	return ""
}

func (m *memoryStore) Get(_ context.Context, key string) *goredis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (m *memoryStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) *goredis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = toString(value)
	return goredis.NewStatusResult("OK", nil)
}

func (m *memoryStore) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *goredis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	m.data[key] = toString(value)
	return goredis.NewBoolResult(true, nil)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func TestIdempotency(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	status := http.StatusCreated

	r := gin.New()
	r.Use(Idempotency(&IdempotencyConfig{Store: store}))
	r.POST("/deals", func(c *gin.Context) {
		calls++
		c.JSON(status, gin.H{"call": calls})
	})

	do := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/deals", strings.NewReader(body))
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := do("k1", `{"a":1}`)
	require.Equal(t, http.StatusCreated, first.Code)

	replay := do("k1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, 1, calls, "replayed response does not reach the handler")

	reused := do("k1", `{"a":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)

	noKey := do("", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, noKey.Code)
	assert.Equal(t, 2, calls)

	status = http.StatusInternalServerError
	failed := do("k2", `{}`)
	assert.Equal(t, http.StatusInternalServerError, failed.Code)
	status = http.StatusCreated
	retried := do("k2", `{}`)
	assert.Equal(t, http.StatusCreated, retried.Code, "failed responses release the key")
}

func TestIdempotency_RequireKey(t *testing.T) {
	r := gin.New()
	r.Use(Idempotency(&IdempotencyConfig{Store: newMemoryStore(), RequireKey: true}))
	r.POST("/deals", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/deals", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(&RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))
	r.GET("/price", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/price", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"), "limits are per client")
}

func TestLimiterStore_DropsIdleClients(t *testing.T) {
	now := time.Now()
	s := &limiterStore{
		limiters:  make(map[string]*clientLimiter),
		limit:     1,
		burst:     1,
		idleTTL:   time.Minute,
		lastSweep: now,
	}

	s.get("a", now)
	s.get("b", now.Add(50*time.Second))
	s.get("b", now.Add(2*time.Minute))

	assert.NotContains(t, s.limiters, "a")
	assert.Contains(t, s.limiters, "b")
}
