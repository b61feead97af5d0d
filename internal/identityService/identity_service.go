package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/internal/validation"
	"auction-house/utils"
)

// Credential limits
const (
	MaxUsernameLength = 64
	MinPasswordLength = 8
	MaxPasswordBytes  = 72 // bcrypt ignores anything longer
)

// Claims represents the JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IdentityService registers users and issues, verifies and revokes access tokens
type IdentityService struct {
	users   repository.UserDB
	revoked RevocationList
	secret  []byte
	ttl     time.Duration
	cost    int
	now     func() time.Time
}

// NewIdentityService creates a new IdentityService instance
func NewIdentityService(users repository.UserDB, revoked RevocationList, secret string, ttl time.Duration) *IdentityService {
	return &IdentityService{
		users:   users,
		revoked: revoked,
		secret:  []byte(secret),
		ttl:     ttl,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
}

// TokenTTL is how long issued tokens stay valid
func (s *IdentityService) TokenTTL() time.Duration {
	return s.ttl
}

// Register creates an account. password and confirmation must match.
func (s *IdentityService) Register(ctx context.Context, username, email, password, confirmation string) (model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if n := utf8.RuneCountInString(username); n == 0 || n > MaxUsernameLength {
		return model.User{}, fmt.Errorf("service: %w - username must be 1 to %d characters", auctionerrors.ErrValidation, MaxUsernameLength)
	}
	if email != "" {
		if err := validation.Email(email); err != nil {
			return model.User{}, fmt.Errorf("service: %w - invalid email address", auctionerrors.ErrValidation)
		}
	}
	if password != confirmation {
		return model.User{}, fmt.Errorf("service: %w - passwords must match", auctionerrors.ErrValidation)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return model.User{}, fmt.Errorf("service: %w - password must be %d to %d bytes", auctionerrors.ErrValidation, MinPasswordLength, MaxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("service: failed to hash password: %w", err)
	}

	user := model.User{
		UserID:       utils.GenerateID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return model.User{}, fmt.Errorf("service: failed to register %s: %w", username, err)
	}

	utils.Info("user registered", map[string]any{"user_id": user.UserID, "username": username})
	return user, nil
}

// Login checks credentials and returns a signed access token.
// Unknown users and wrong passwords both yield ErrUnauthorized.
func (s *IdentityService) Login(ctx context.Context, username, password string) (string, model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, auctionerrors.ErrUserNotFound) {
		return "", model.User{}, fmt.Errorf("service: %w - invalid username and/or password", auctionerrors.ErrUnauthorized)
	}
	if err != nil {
		return "", model.User{}, fmt.Errorf("service: failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		utils.Warn("failed login", map[string]any{"username": user.Username})
		return "", model.User{}, fmt.Errorf("service: %w - invalid username and/or password", auctionerrors.ErrUnauthorized)
	}

	token, err := s.issue(user)
	if err != nil {
		return "", model.User{}, err
	}
	return token, user, nil
}

// Logout revokes the token identified by claims for the rest of its lifetime
func (s *IdentityService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return fmt.Errorf("service: %w - no session", auctionerrors.ErrUnauthorized)
	}

	ttl := s.ttl
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("service: failed to revoke token: %w", err)
	}

	utils.Info("user logged out", map[string]any{"user_id": claims.UserID})
	return nil
}

// VerifyToken parses and validates a token and checks it was not revoked
func (s *IdentityService) VerifyToken(ctx context.Context, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("service: %w - %v", auctionerrors.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("service: %w - invalid token", auctionerrors.ErrUnauthorized)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("service: %w - token revoked", auctionerrors.ErrUnauthorized)
	}
	return claims, nil
}

func (s *IdentityService) issue(user model.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.UserID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        utils.GenerateID(),
			Subject:   user.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("service: signing token: %w", err)
	}
	return signed, nil
}
