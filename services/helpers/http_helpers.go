package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-house/internal/auctionerrors"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware
const (
	UserIDKey   = "userID"
	UsernameKey = "username"
	ClaimsKey   = "claims"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONErrorDetails(c, http.StatusBadRequest, wrappedErr, "invalid request payload", ToDetails(err))
	utils.Warn(handlerName+": binding error", map[string]any{
		"error":      err.Error(),
		"request_id": c.GetString(utils.RequestIDKey),
	})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, auctionerrors.ErrCategoryNotFound):
		return http.StatusNotFound, "category not found"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	case errors.Is(err, auctionerrors.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, auctionerrors.ErrBelowStartingPrice):
		return http.StatusConflict, "bid is below the starting price"
	case errors.Is(err, auctionerrors.ErrNotHigherThanCurrentBid):
		return http.StatusConflict, "bid must be higher than the current bid"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusConflict, "auction is closed"
	case errors.Is(err, auctionerrors.ErrUserExists):
		return http.StatusConflict, "username already taken"
	case errors.Is(err, auctionerrors.ErrCategoryExists):
		return http.StatusConflict, "category already exists"
	case errors.Is(err, auctionerrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, auctionerrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// HandleServiceError maps err to a status, writes the error envelope and logs it.
// Server errors are logged at error level and their cause is not echoed to the client.
func HandleServiceError(c *gin.Context, handlerName string, err error, ctx map[string]any) {
	status, message := MapErrorToHTTP(err)

	fields := map[string]any{
		"handler":    handlerName,
		"status":     status,
		"error":      err.Error(),
		"request_id": c.GetString(utils.RequestIDKey),
	}
	for k, v := range ctx {
		fields[k] = v
	}

	if status >= http.StatusInternalServerError {
		utils.JSONError(c, status, errors.New(message), message)
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
	utils.Warn(handlerName+": request rejected", fields)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// CurrentUserID returns the authenticated user's id, or "" for anonymous requests
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
