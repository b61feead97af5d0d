package handler

import (
	"context"
	"net/http"
	"time"

	identity "auction-house/internal/identityService"
	model "auction-house/internal/models"
	"auction-house/services/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=identity_handler.go -destination=mock_identity_service.go -package=handler

// AccessTokenCookie carries the session token for browser clients
const AccessTokenCookie = "access_token"

type IdentityServiceInterface interface {
	Register(ctx context.Context, username, email, password, confirmation string) (model.User, error)
	Login(ctx context.Context, username, password string) (string, model.User, error)
	Logout(ctx context.Context, claims *identity.Claims) error
	TokenTTL() time.Duration
}

type IdentityHandler struct {
	service      IdentityServiceInterface
	secureCookie bool
	now          func() time.Time
}

func NewIdentityHandler(service IdentityServiceInterface, secureCookie bool) *IdentityHandler {
	return &IdentityHandler{service: service, secureCookie: secureCookie, now: time.Now}
}

// RegisterHandler handles POST /auth/register. A new account is signed in straight away.
func (h *IdentityHandler) RegisterHandler(c *gin.Context) {
	var req helpers.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.Confirmation)
	if err != nil {
		helpers.HandleServiceError(c, "RegisterHandler", err, map[string]any{"username": req.Username})
		return
	}

	token, _, err := h.service.Login(c.Request.Context(), user.Username, req.Password)
	if err != nil {
		helpers.HandleServiceError(c, "RegisterHandler", err, map[string]any{"username": user.Username})
		return
	}

	h.respondWithSession(c, http.StatusCreated, token, user, "registered successfully")
	helpers.LogSuccess("RegisterHandler", "registered successfully", map[string]any{"user_id": user.UserID})
}

// LoginHandler handles POST /auth/login
func (h *IdentityHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		helpers.HandleServiceError(c, "LoginHandler", err, map[string]any{"username": req.Username})
		return
	}

	h.respondWithSession(c, http.StatusOK, token, user, "logged in successfully")
	helpers.LogSuccess("LoginHandler", "logged in successfully", map[string]any{"user_id": user.UserID})
}

// LogoutHandler handles POST /auth/logout
func (h *IdentityHandler) LogoutHandler(c *gin.Context) {
	claims, _ := c.Get(helpers.ClaimsKey)
	sessionClaims, _ := claims.(*identity.Claims)

	if err := h.service.Logout(c.Request.Context(), sessionClaims); err != nil {
		helpers.HandleServiceError(c, "LogoutHandler", err, nil)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", h.secureCookie, true)
	utils.JSONResponse(c, http.StatusOK, nil, "logged out successfully")
	helpers.LogSuccess("LogoutHandler", "logged out successfully", map[string]any{"user_id": helpers.CurrentUserID(c)})
}

// MeHandler handles GET /auth/me
func (h *IdentityHandler) MeHandler(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, helpers.UserResponse{
		UserID:   helpers.CurrentUserID(c),
		Username: c.GetString(helpers.UsernameKey),
	}, "session retrieved successfully")
}

func (h *IdentityHandler) respondWithSession(c *gin.Context, status int, token string, user model.User, message string) {
	ttl := h.service.TokenTTL()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, token, int(ttl.Seconds()), "/", "", h.secureCookie, true)
	utils.JSONResponse(c, status, helpers.SessionResponse{
		Token:     token,
		ExpiresAt: h.now().Add(ttl).UTC().Format(time.RFC3339),
		User:      helpers.NewUserResponse(user),
	}, message)
}
