package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	identity "auction-house/internal/identityService"
	"auction-house/services/helpers"
	identityhandler "auction-house/services/identity/handler"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TokenVerifier resolves an access token to its claims
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*identity.Claims, error)
}

// RequestIDMiddleware tags every request with an id, reusing the caller's X-Request-ID if sent
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(utils.RequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"status":     c.Writer.Status(),
		"latency":    time.Since(start).String(),
		"client_ip":  c.ClientIP(),
		"request_id": c.GetString(utils.RequestIDKey),
	}
	if uid := helpers.CurrentUserID(c); uid != "" {
		fields["user_id"] = uid
	}
	utils.Info("HTTP Request", fields)
}

// bearerToken reads the access token from the session cookie or the Authorization header
func bearerToken(c *gin.Context) string {
	if token, err := c.Cookie(identityhandler.AccessTokenCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func setSession(c *gin.Context, claims *identity.Claims) {
	c.Set(helpers.UserIDKey, claims.UserID)
	c.Set(helpers.UsernameKey, claims.Username)
	c.Set(helpers.ClaimsKey, claims)
}

// AuthMiddleware rejects requests without a valid, unrevoked access token
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.JSONError(c, http.StatusUnauthorized, errors.New("missing access token"), "unauthorized")
			c.Abort()
			return
		}

		claims, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			helpers.HandleServiceError(c, "AuthMiddleware", err, map[string]any{"path": c.Request.URL.Path})
			c.Abort()
			return
		}

		setSession(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the viewer when a valid token is present
// and otherwise lets the request through anonymously
func OptionalAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			claims, err := verifier.VerifyToken(c.Request.Context(), token)
			if err == nil {
				setSession(c, claims)
			} else {
				utils.Debug("ignoring invalid access token", map[string]any{
					"error":      err.Error(),
					"request_id": c.GetString(utils.RequestIDKey),
				})
			}
		}
		c.Next()
	}
}
