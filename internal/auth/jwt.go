package auth

import (
	"context"
	"fmt"
	"time"

	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Gate validates bearer tokens presented at connection establishment and
// resolves them to live users. Every failure mode collapses to a single
// outcome for the caller; the specific cause is only logged.
type Gate struct {
	secret   []byte
	userRepo outbound.UserRepository
	logger   zerolog.Logger
}

type GateParams struct {
	Secret   string
	UserRepo outbound.UserRepository
	Logger   zerolog.Logger
}

// NewGate creates a new authentication gate.
func NewGate(params GateParams) *Gate {
	return &Gate{
		secret:   []byte(params.Secret),
		userRepo: params.UserRepo,
		logger:   params.Logger.With().Str("component", "auth_gate").Logger(),
	}
}

// Authenticate decodes the token, extracts the user_id claim and resolves it
// to a user. Returns shared.ErrTokenInvalid on any failure.
func (g *Gate) Authenticate(ctx context.Context, tokenString string) (*shared.User, error) {
	if tokenString == "" {
		g.logger.Warn().Msg("No authentication token provided")
		return nil, shared.ErrTokenRequired
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("Token rejected")
		return nil, shared.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		g.logger.Warn().Msg("Token claims missing or invalid")
		return nil, shared.ErrTokenInvalid
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		g.logger.Warn().Msg("Token missing user_id claim")
		return nil, shared.ErrTokenInvalid
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		g.logger.Warn().Str("user_id", userIDStr).Msg("Malformed user_id claim")
		return nil, shared.ErrTokenInvalid
	}

	user, err := g.userRepo.GetByID(ctx, userID)
	if err != nil {
		g.logger.Warn().Err(err).Str("user_id", userIDStr).Msg("User not found for valid token")
		return nil, shared.ErrTokenInvalid
	}

	return user, nil
}

// GenerateToken mints a signed token for a user, used by the seeder and tests.
func (g *Gate) GenerateToken(userID uuid.UUID, username string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID.String(),
		"username": username,
		"exp":      time.Now().Add(ttl).Unix(),
	})

	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
