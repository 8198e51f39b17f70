package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"solden-marketplace-service/internal/ports/inbound"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCloser struct {
	mu     sync.Mutex
	delay  time.Duration
	closed []uuid.UUID
}

func (c *recordingCloser) CloseExpired(ctx context.Context, auctionID uuid.UUID) (*inbound.AuctionView, error) {
	c.mu.Lock()
	c.closed = append(c.closed, auctionID)
	delay := c.delay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return &inbound.AuctionView{ID: auctionID.String()}, nil
}

func (c *recordingCloser) closedIDs() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uuid.UUID(nil), c.closed...)
}

func newTestScheduler(t *testing.T) (*AuctionScheduler, *recordingCloser, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	closer := &recordingCloser{}
	s := NewAuctionScheduler(AuctionSchedulerParams{
		RedisClient:    client,
		AuctionService: closer,
		Logger:         zerolog.Nop(),
	})
	return s, closer, mr
}

func TestSchedulerClosesDueAuctions(t *testing.T) {
	s, closer, mr := newTestScheduler(t)

	due := uuid.New()
	pending := uuid.New()
	require.NoError(t, s.ScheduleAuction(due, time.Now().Add(-time.Second)))
	require.NoError(t, s.ScheduleAuction(pending, time.Now().Add(time.Hour)))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(closer.closedIDs()) == 1
	}, 5*time.Second, 50*time.Millisecond, "due auction was not closed")

	assert.Equal(t, []uuid.UUID{due}, closer.closedIDs())

	// The processed member is removed, the future one stays scheduled.
	require.Eventually(t, func() bool {
		members, _ := mr.ZMembers(expirationsKey)
		return len(members) == 1 && members[0] == pending.String()
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSlowCloseIsNotPickedUpTwice(t *testing.T) {
	s, closer, _ := newTestScheduler(t)
	closer.delay = 2500 * time.Millisecond

	id := uuid.New()
	require.NoError(t, s.ScheduleAuction(id, time.Now().Add(-time.Second)))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(closer.closedIDs()) >= 1
	}, 5*time.Second, 50*time.Millisecond, "due auction was not picked up")

	// Several ticks elapse while the close is still in flight. The claim
	// removed the member up front, so no tick sees it again.
	time.Sleep(2 * time.Second)
	assert.Equal(t, []uuid.UUID{id}, closer.closedIDs())
}

func TestCancelAuctionDropsTheClosing(t *testing.T) {
	s, _, mr := newTestScheduler(t)

	id := uuid.New()
	require.NoError(t, s.ScheduleAuction(id, time.Now().Add(time.Hour)))
	require.NoError(t, s.CancelAuction(id))

	// The key itself disappears once its last member is removed.
	members, _ := mr.ZMembers(expirationsKey)
	assert.Empty(t, members)
}
