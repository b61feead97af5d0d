package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	identity "auction-house/internal/identityService"
	"auction-house/services/helpers"
	"auction-house/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubVerifier accepts exactly one token
type stubVerifier struct {
	token  string
	claims *identity.Claims
	err    error
}

func (s stubVerifier) VerifyToken(_ context.Context, token string) (*identity.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != s.token {
		return nil, fmt.Errorf("service: %w - invalid token", auctionerrors.ErrUnauthorized)
	}
	return s.claims, nil
}

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":    helpers.CurrentUserID(c),
		"request_id": c.GetString(utils.RequestIDKey),
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", whoAmI)

	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "generated", incoming: "", reuse: false},
		{name: "reuses_valid_uuid", incoming: uuid.NewString(), reuse: true},
		{name: "replaces_garbage", incoming: "not-a-uuid", reuse: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header.Set("X-Request-ID", tc.incoming)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			id := w.Header().Get("X-Request-ID")
			_, err := uuid.Parse(id)
			require.NoError(t, err)
			if tc.reuse {
				require.Equal(t, tc.incoming, id)
			} else {
				require.NotEqual(t, tc.incoming, id)
			}

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, id, body["request_id"])
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	verifier := stubVerifier{token: "good", claims: &identity.Claims{UserID: "u1", Username: "alice"}}

	router := gin.New()
	router.GET("/private", AuthMiddleware(verifier), whoAmI)
	router.GET("/public", OptionalAuthMiddleware(verifier), whoAmI)

	tests := []struct {
		name           string
		path           string
		setup          func(r *http.Request)
		expectedStatus int
		expectedUser   string
	}{
		{
			name:           "private_without_token",
			path:           "/private",
			setup:          func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "private_with_cookie",
			path: "/private",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: "good"})
			},
			expectedStatus: http.StatusOK,
			expectedUser:   "u1",
		},
		{
			name:           "private_with_bearer",
			path:           "/private",
			setup:          func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			expectedStatus: http.StatusOK,
			expectedUser:   "u1",
		},
		{
			name:           "private_with_bad_token",
			path:           "/private",
			setup:          func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "public_anonymous",
			path:           "/public",
			setup:          func(r *http.Request) {},
			expectedStatus: http.StatusOK,
			expectedUser:   "",
		},
		{
			name:           "public_bad_token_is_anonymous",
			path:           "/public",
			setup:          func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") },
			expectedStatus: http.StatusOK,
			expectedUser:   "",
		},
		{
			name: "public_identified",
			path: "/public",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: "good"})
			},
			expectedStatus: http.StatusOK,
			expectedUser:   "u1",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			if w.Code == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				require.Equal(t, tc.expectedUser, body["user_id"])
			}
		})
	}
}

func TestAuthMiddleware_RevocationStoreDown(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.GET("/private", AuthMiddleware(stubVerifier{err: fmt.Errorf("service: failed to check token revocation: %w", redis.ErrClosed)}), whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(helpers.UserIDKey, id)
		}
		c.Next()
	})
	router.POST("/bids", RateLimit(rdb, 2, time.Minute, KeyByUserID(), nil), whoAmI)

	hit := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/bids", nil)
		req.Header.Set("X-Test-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := hit("alice")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	require.Equal(t, http.StatusOK, hit("alice").Code)

	w = hit("alice")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, "60", w.Header().Get("Retry-After"))

	// other users keep their own budget
	require.Equal(t, http.StatusOK, hit("bob").Code)

	mr.FastForward(time.Minute)
	require.Equal(t, http.StatusOK, hit("alice").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.POST("/bids", RateLimit(nil, 1, time.Minute, KeyByIP(), nil), whoAmI)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/bids", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	router := gin.New()
	router.POST("/bids", RateLimit(rdb, 1, time.Minute, KeyByIP(), nil), whoAmI)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/bids", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

// failingPTTL makes every PTTL call fail while other commands reach the server
type failingPTTL struct{}

func (failingPTTL) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failingPTTL) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "pttl" {
			err := errors.New("pttl unavailable")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failingPTTL) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRateLimit_TTLErrorIsLogged(t *testing.T) {
	var logs bytes.Buffer
	utils.SetLogOutput(&logs)
	t.Cleanup(func() { utils.SetLogOutput(os.Stdout) })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rdb.AddHook(failingPTTL{})
	t.Cleanup(func() { _ = rdb.Close() })

	router := gin.New()
	router.POST("/bids", RateLimit(rdb, 5, time.Minute, KeyByIP(), nil), whoAmI)

	req := httptest.NewRequest(http.MethodPost, "/bids", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Reset"))
	require.Contains(t, logs.String(), "rate limiter could not read window ttl")
	require.Contains(t, logs.String(), "pttl unavailable")
}
