package auth

import (
	"context"
	"testing"
	"time"

	"solden-marketplace-service/internal/domain/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUserRepo struct {
	users map[uuid.UUID]*shared.User
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrUserNotFound
}

func (r *memoryUserRepo) GetByUsername(ctx context.Context, username string) (*shared.User, error) {
	return nil, shared.ErrUserNotFound
}

func (r *memoryUserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*shared.User, error) {
	return nil, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user *shared.User) error { return nil }

func (r *memoryUserRepo) UpdateThumbnail(ctx context.Context, userID uuid.UUID, url string) error {
	return nil
}

func newTestGate(users ...*shared.User) *Gate {
	repo := &memoryUserRepo{users: make(map[uuid.UUID]*shared.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return NewGate(GateParams{Secret: "test-secret", UserRepo: repo, Logger: zerolog.Nop()})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	user := &shared.User{ID: uuid.New(), Username: "alice"}

	t.Run("round trip", func(t *testing.T) {
		gate := newTestGate(user)
		token, err := gate.GenerateToken(user.ID, user.Username, time.Hour)
		require.NoError(t, err)

		got, err := gate.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("empty token", func(t *testing.T) {
		gate := newTestGate(user)
		_, err := gate.Authenticate(ctx, "")
		assert.ErrorIs(t, err, shared.ErrTokenRequired)
	})

	t.Run("garbage token", func(t *testing.T) {
		gate := newTestGate(user)
		_, err := gate.Authenticate(ctx, "not.a.token")
		assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewGate(GateParams{Secret: "different", UserRepo: &memoryUserRepo{}, Logger: zerolog.Nop()})
		token, err := other.GenerateToken(user.ID, user.Username, time.Hour)
		require.NoError(t, err)

		gate := newTestGate(user)
		_, err = gate.Authenticate(ctx, token)
		assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		gate := newTestGate(user)
		token, err := gate.GenerateToken(user.ID, user.Username, -time.Minute)
		require.NoError(t, err)

		_, err = gate.Authenticate(ctx, token)
		assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	})

	t.Run("unknown user", func(t *testing.T) {
		gate := newTestGate()
		token, err := gate.GenerateToken(user.ID, user.Username, time.Hour)
		require.NoError(t, err)

		_, err = gate.Authenticate(ctx, token)
		assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	})

	t.Run("rejects non-HMAC signing", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": user.ID.String()})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		gate := newTestGate(user)
		_, err = gate.Authenticate(ctx, signed)
		assert.ErrorIs(t, err, shared.ErrTokenInvalid)
	})
}
