package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, sub string, admin bool, ttl time.Duration) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"admin": admin,
		"exp":   time.Now().Add(ttl).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	users := r.Group("/users/:userId", AuthMiddleware(testSecret), SelfOrAdmin("userId"))
	users.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c).String(), "admin": IsAdmin(c)})
	})
	r.GET("/admin", AuthMiddleware(testSecret), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	router := protectedRouter()

	tests := []struct {
		name   string
		path   string
		setup  func(*http.Request)
		status int
	}{
		{"no token", "/users/" + userID.String(), func(*http.Request) {}, http.StatusUnauthorized},
		{"bearer", "/users/" + userID.String(), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String(), false, time.Hour))
		}, http.StatusOK},
		{"cookie", "/users/" + userID.String(), func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: TokenCookie, Value: signToken(t, testSecret, userID.String(), false, time.Hour)})
		}, http.StatusOK},
		{"wrong secret", "/users/" + userID.String(), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, "other", userID.String(), false, time.Hour))
		}, http.StatusUnauthorized},
		{"expired", "/users/" + userID.String(), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String(), false, -time.Minute))
		}, http.StatusUnauthorized},
		{"bad subject", "/users/" + userID.String(), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "nope", false, time.Hour))
		}, http.StatusUnauthorized},
		{"other user", "/users/" + uuid.NewString(), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String(), false, time.Hour))
		}, http.StatusForbidden},
		{"admin on other user", "/users/" + uuid.NewString(), func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String(), true, time.Hour))
		}, http.StatusOK},
		{"malformed user id", "/users/abc", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String(), false, time.Hour))
		}, http.StatusBadRequest},
		{"admin route as customer", "/admin", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String(), false, time.Hour))
		}, http.StatusForbidden},
		{"admin route as admin", "/admin", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String(), true, time.Hour))
		}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				assert.Contains(t, w.Body.String(), `"error":true`)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2, time.Minute)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))

	rl.evict(time.Now().Add(2 * time.Minute))
	assert.Empty(t, rl.ips)
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(50 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://localhost:3000/"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
