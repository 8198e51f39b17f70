package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// expirationsKey is the sorted set of pending closings, scored by end time.
const expirationsKey = "auction:expirations"

// AuctionCloser is the slice of the auction service the scheduler drives.
type AuctionCloser interface {
	CloseExpired(ctx context.Context, auctionID uuid.UUID) (*inbound.AuctionView, error)
}

// AuctionScheduler closes auctions when their bidding window elapses. End
// times live in a Redis sorted set so pending closings survive restarts and
// are shared between replicas.
type AuctionScheduler struct {
	redis          *redis.Client
	auctionService AuctionCloser
	logger         zerolog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

type AuctionSchedulerParams struct {
	RedisClient    *redis.Client
	AuctionService AuctionCloser
	Logger         zerolog.Logger
}

func NewAuctionScheduler(params AuctionSchedulerParams) *AuctionScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &AuctionScheduler{
		redis:          params.RedisClient,
		auctionService: params.AuctionService,
		logger:         params.Logger.With().Str("component", "auction_scheduler").Logger(),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// ScheduleAuction adds an auction to the expiration schedule
func (s *AuctionScheduler) ScheduleAuction(auctionID uuid.UUID, endTime time.Time) error {
	score := float64(endTime.Unix())

	err := s.redis.ZAdd(s.ctx, expirationsKey, redis.Z{
		Score:  score,
		Member: auctionID.String(),
	}).Err()

	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to schedule auction")
		return fmt.Errorf("failed to schedule auction: %w", err)
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Time("end_time", endTime).
		Msg("Auction scheduled for expiration")

	return nil
}

// CancelAuction drops a pending closing, used when a listing is deleted.
func (s *AuctionScheduler) CancelAuction(auctionID uuid.UUID) error {
	return s.redis.ZRem(s.ctx, expirationsKey, auctionID.String()).Err()
}

// Start begins the scheduler loop
func (s *AuctionScheduler) Start() {
	s.logger.Info().Msg("Starting auction scheduler")

	s.wg.Add(1)
	go s.schedulerLoop()
}

// Stop gracefully stops the scheduler
func (s *AuctionScheduler) Stop() {
	s.logger.Info().Msg("Stopping auction scheduler")
	s.cancel()
	s.wg.Wait()
}

// schedulerLoop runs the main scheduling loop
func (s *AuctionScheduler) schedulerLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkExpiredAuctions()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Scheduler loop stopped")
			return
		}
	}
}

// checkExpiredAuctions finds and processes expired auctions
func (s *AuctionScheduler) checkExpiredAuctions() {
	now := time.Now().Unix()

	expired, err := s.redis.ZRangeByScore(s.ctx, expirationsKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now, 10),
		Count: 10, // Process max 10 per tick
	}).Result()

	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get expired auctions")
		return
	}

	if len(expired) > 0 {
		s.logger.Debug().Int("count", len(expired)).Msg("Found expired auctions")
	}

	for _, auctionIDStr := range expired {
		auctionID, err := uuid.Parse(auctionIDStr)
		if err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionIDStr).Msg("Invalid auction ID in schedule")
			s.redis.ZRem(s.ctx, expirationsKey, auctionIDStr)
			continue
		}

		// Claim the member first: a close that outlives the tick must not
		// be picked up again, and only one replica may win the claim.
		removed, err := s.redis.ZRem(s.ctx, expirationsKey, auctionIDStr).Result()
		if err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionIDStr).Msg("Failed to claim expired auction")
			continue
		}
		if removed == 0 {
			continue
		}

		go s.endAuction(auctionID)
	}
}

// endAuction closes one auction. The service elects the winner and broadcasts
// the closed listing itself.
func (s *AuctionScheduler) endAuction(auctionID uuid.UUID) {
	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Processing auction end")

	view, err := s.auctionService.CloseExpired(s.ctx, auctionID)
	if err != nil {
		// The listing may have been deleted after its closing was scheduled.
		if errors.Is(err, shared.ErrAuctionNotFound) {
			s.logger.Info().Str("auction_id", auctionID.String()).Msg("Scheduled auction no longer exists")
			return
		}
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to end auction")
		return
	}

	logger := s.logger.Info().Str("auction_id", auctionID.String())
	if view.Winner != nil {
		logger = logger.Str("winner", view.Winner.Username).Float64("final_price", view.CurrentPrice)
	}
	logger.Msg("Auction ended")
}
