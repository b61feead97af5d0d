package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	identity "auction-house/internal/identityService"
	model "auction-house/internal/models"
	"auction-house/internal/validation"
	"auction-house/services/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	os.Exit(m.Run())
}

func newTestRouter(h *IdentityHandler, claims *identity.Claims) *gin.Engine {
	router := gin.New()

	router.POST("/auth/register", h.RegisterHandler)
	router.POST("/auth/login", h.LoginHandler)

	authed := router.Group("/auth")
	authed.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(helpers.UserIDKey, claims.UserID)
			c.Set(helpers.UsernameKey, claims.Username)
			c.Set(helpers.ClaimsKey, claims)
		}
		c.Next()
	})
	authed.POST("/logout", h.LogoutHandler)
	authed.GET("/me", h.MeHandler)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterHandler(t *testing.T) {
	user := model.User{UserID: "u1", Username: "alice", Email: "alice@example.com", CreatedAt: time.Now()}

	tests := []struct {
		name           string
		body           map[string]any
		mockSetup      func(m *MockIdentityServiceInterface)
		expectedStatus int
		expectedMsg    string
		expectCookie   bool
	}{
		{
			name: "success",
			body: map[string]any{"username": "alice", "email": "alice@example.com", "password": "password1", "confirmation": "password1"},
			mockSetup: func(m *MockIdentityServiceInterface) {
				m.EXPECT().Register(gomock.Any(), "alice", "alice@example.com", "password1", "password1").Return(user, nil)
				m.EXPECT().Login(gomock.Any(), "alice", "password1").Return("signed-token", user, nil)
				m.EXPECT().TokenTTL().Return(time.Hour)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "registered successfully",
			expectCookie:   true,
		},
		{
			name:           "confirmation_mismatch",
			body:           map[string]any{"username": "alice", "password": "password1", "confirmation": "password2"},
			mockSetup:      func(m *MockIdentityServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "username_taken",
			body: map[string]any{"username": "alice", "password": "password1", "confirmation": "password1"},
			mockSetup: func(m *MockIdentityServiceInterface) {
				m.EXPECT().Register(gomock.Any(), "alice", "", "password1", "password1").
					Return(model.User{}, auctionerrors.ErrUserExists)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "username already taken",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockService := NewMockIdentityServiceInterface(ctrl)
			tc.mockSetup(mockService)
			router := newTestRouter(NewIdentityHandler(mockService, false), nil)

			w := postJSON(t, router, "/auth/register", tc.body)

			require.Equal(t, tc.expectedStatus, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Contains(t, resp["message"], tc.expectedMsg)

			cookie := findCookie(w, AccessTokenCookie)
			if !tc.expectCookie {
				require.Nil(t, cookie)
				return
			}
			require.NotNil(t, cookie)
			require.Equal(t, "signed-token", cookie.Value)
			require.True(t, cookie.HttpOnly)
			require.Equal(t, 3600, cookie.MaxAge)

			data := resp["data"].(map[string]any)
			require.Equal(t, "signed-token", data["token"])
			require.Equal(t, "alice", data["user"].(map[string]any)["username"])
		})
	}
}

func TestLoginHandler(t *testing.T) {
	user := model.User{UserID: "u1", Username: "alice"}

	tests := []struct {
		name           string
		body           map[string]any
		mockSetup      func(m *MockIdentityServiceInterface)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success",
			body: map[string]any{"username": "alice", "password": "password1"},
			mockSetup: func(m *MockIdentityServiceInterface) {
				m.EXPECT().Login(gomock.Any(), "alice", "password1").Return("signed-token", user, nil)
				m.EXPECT().TokenTTL().Return(30 * time.Minute)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "logged in successfully",
		},
		{
			name: "bad_credentials",
			body: map[string]any{"username": "alice", "password": "wrong-password"},
			mockSetup: func(m *MockIdentityServiceInterface) {
				m.EXPECT().Login(gomock.Any(), "alice", "wrong-password").Return("", model.User{}, auctionerrors.ErrUnauthorized)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "unauthorized",
		},
		{
			name:           "missing_password",
			body:           map[string]any{"username": "alice"},
			mockSetup:      func(m *MockIdentityServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "store_down",
			body: map[string]any{"username": "alice", "password": "password1"},
			mockSetup: func(m *MockIdentityServiceInterface) {
				m.EXPECT().Login(gomock.Any(), "alice", "password1").Return("", model.User{}, errors.New("connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockService := NewMockIdentityServiceInterface(ctrl)
			tc.mockSetup(mockService)
			router := newTestRouter(NewIdentityHandler(mockService, true), nil)

			w := postJSON(t, router, "/auth/login", tc.body)

			require.Equal(t, tc.expectedStatus, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Contains(t, resp["message"], tc.expectedMsg)

			if w.Code == http.StatusOK {
				cookie := findCookie(w, AccessTokenCookie)
				require.NotNil(t, cookie)
				require.True(t, cookie.Secure)
			}
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	t.Parallel()

	claims := &identity.Claims{
		UserID:           "u1",
		Username:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"},
	}

	ctrl := gomock.NewController(t)
	mockService := NewMockIdentityServiceInterface(ctrl)
	mockService.EXPECT().Logout(gomock.Any(), claims).Return(nil)

	router := newTestRouter(NewIdentityHandler(mockService, false), claims)
	w := postJSON(t, router, "/auth/logout", nil)

	require.Equal(t, http.StatusOK, w.Code)
	cookie := findCookie(w, AccessTokenCookie)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)
}

func TestLogoutHandler_RevocationFailure(t *testing.T) {
	t.Parallel()

	claims := &identity.Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ID: "jti-2"}}

	ctrl := gomock.NewController(t)
	mockService := NewMockIdentityServiceInterface(ctrl)
	mockService.EXPECT().Logout(gomock.Any(), claims).Return(errors.New("redis unavailable"))

	router := newTestRouter(NewIdentityHandler(mockService, false), claims)
	w := postJSON(t, router, "/auth/logout", nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Nil(t, findCookie(w, AccessTokenCookie))
}

func TestMeHandler(t *testing.T) {
	t.Parallel()

	claims := &identity.Claims{UserID: "u1", Username: "alice"}
	ctrl := gomock.NewController(t)
	router := newTestRouter(NewIdentityHandler(NewMockIdentityServiceInterface(ctrl), false), claims)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	require.Equal(t, "u1", data["user_id"])
	require.Equal(t, "alice", data["username"])
}
