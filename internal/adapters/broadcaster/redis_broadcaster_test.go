package broadcaster

import (
	"context"
	"testing"
	"time"

	"solden-marketplace-service/internal/ports/outbound"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBroadcaster(t *testing.T) (*RedisBroadcaster, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	b := NewBroadcaster(RedisBroadcasterParams{
		RedisClient: client,
		Logger:      zerolog.Nop(),
	})

	cleanup := func() {
		b.Close()
		mr.Close()
	}

	return b, cleanup
}

func TestPublishReachesJoinedSession(t *testing.T) {
	b, cleanup := setupBroadcaster(t)
	defer cleanup()

	ctx := context.Background()
	events := make(chan outbound.Event, 10)

	require.NoError(t, b.JoinGroup(ctx, outbound.RoomAuctions, "session-1", events))

	// Subscription establishment races the publish; retry until delivered.
	var received outbound.Event
	require.Eventually(t, func() bool {
		b.Publish(ctx, outbound.RoomAuctions, outbound.Event{
			Source: "new_bid",
			Data:   map[string]interface{}{"amount": 125.0},
		})
		select {
		case received = <-events:
			return true
		default:
			return false
		}
	}, 3*time.Second, 50*time.Millisecond)

	assert.Equal(t, "new_bid", received.Source)
}

func TestPublishDoesNotCrossGroups(t *testing.T) {
	b, cleanup := setupBroadcaster(t)
	defer cleanup()

	ctx := context.Background()
	events := make(chan outbound.Event, 10)

	require.NoError(t, b.JoinGroup(ctx, "alice", "session-1", events))

	b.Publish(ctx, "bob", outbound.Event{Source: "message_send"})

	select {
	case event := <-events:
		t.Fatalf("unexpected event delivered: %v", event)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestJoinGroupIsIdempotent(t *testing.T) {
	b, cleanup := setupBroadcaster(t)
	defer cleanup()

	ctx := context.Background()
	events := make(chan outbound.Event, 10)

	require.NoError(t, b.JoinGroup(ctx, outbound.RoomAuctions, "session-1", events))
	require.NoError(t, b.JoinGroup(ctx, outbound.RoomAuctions, "session-1", events))

	assert.True(t, b.IsJoined(outbound.RoomAuctions, "session-1"))
}

func TestLeaveAllClosesEventChannel(t *testing.T) {
	b, cleanup := setupBroadcaster(t)
	defer cleanup()

	ctx := context.Background()
	events := make(chan outbound.Event, 10)

	require.NoError(t, b.JoinGroup(ctx, outbound.RoomAuctions, "session-1", events))
	require.NoError(t, b.JoinGroup(ctx, "alice", "session-1", events))

	b.LeaveAll(ctx, "session-1")

	assert.False(t, b.IsJoined(outbound.RoomAuctions, "session-1"))
	assert.False(t, b.IsJoined("alice", "session-1"))

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
}

func TestLeaveGroupKeepsOtherMemberships(t *testing.T) {
	b, cleanup := setupBroadcaster(t)
	defer cleanup()

	ctx := context.Background()
	events := make(chan outbound.Event, 10)

	require.NoError(t, b.JoinGroup(ctx, outbound.RoomAuctions, "session-1", events))
	require.NoError(t, b.JoinGroup(ctx, "alice", "session-1", events))

	require.NoError(t, b.LeaveGroup(ctx, outbound.RoomAuctions, "session-1"))

	assert.False(t, b.IsJoined(outbound.RoomAuctions, "session-1"))
	assert.True(t, b.IsJoined("alice", "session-1"))
}
