package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solden-marketplace-service/internal/domain/auction"
	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/inbound"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxAuctionImages bounds the number of pictures per listing.
const maxAuctionImages = 3

// ExpiryScheduler registers auction end times for automatic closing.
type ExpiryScheduler interface {
	ScheduleAuction(auctionID uuid.UUID, endTime time.Time) error
	CancelAuction(auctionID uuid.UUID) error
}

// AuctionService implements the bidding engine and the query/pagination
// use cases
type AuctionService struct {
	views        viewBuilder
	auctionRepo  outbound.AuctionRepository
	bidRepo      outbound.BidRepository
	userRepo     outbound.UserRepository
	categoryRepo outbound.CategoryRepository
	blobStore    outbound.BlobStore
	broadcaster  outbound.Broadcaster
	scheduler    ExpiryScheduler
	pageSize     int
	logger       zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionRepo  outbound.AuctionRepository
	BidRepo      outbound.BidRepository
	UserRepo     outbound.UserRepository
	CategoryRepo outbound.CategoryRepository
	BlobStore    outbound.BlobStore
	Broadcaster  outbound.Broadcaster
	PageSize     int
	Logger       zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	return &AuctionService{
		views: viewBuilder{
			auctionRepo:  params.AuctionRepo,
			bidRepo:      params.BidRepo,
			userRepo:     params.UserRepo,
			categoryRepo: params.CategoryRepo,
		},
		auctionRepo:  params.AuctionRepo,
		bidRepo:      params.BidRepo,
		userRepo:     params.UserRepo,
		categoryRepo: params.CategoryRepo,
		blobStore:    params.BlobStore,
		broadcaster:  params.Broadcaster,
		pageSize:     params.PageSize,
		logger:       params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// SetScheduler attaches the expiry scheduler. Set after construction because
// the scheduler itself depends on the service to close auctions.
func (s *AuctionService) SetScheduler(scheduler ExpiryScheduler) {
	s.scheduler = scheduler
}

// Search matches ongoing listings by title, excluding the principal's own
func (s *AuctionService) Search(ctx context.Context, principal *shared.User, query string) ([]*inbound.AuctionView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, shared.ErrEmptySearchQuery
	}

	auctions, err := s.auctionRepo.Search(ctx, query, principal.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("Search failed")
		return nil, err
	}

	return s.views.auctionViews(ctx, auctions, principal.ID)
}

// ListByCategory returns one page of the category browse
func (s *AuctionService) ListByCategory(ctx context.Context, principal *shared.User, req inbound.ListAuctionsRequest) (*inbound.AuctionPage, error) {
	if req.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	page := req.Page
	if page < 1 {
		page = 1
	}

	ongoing := auction.StatusOngoing
	filter := outbound.AuctionFilter{
		CategoryID:    req.CategoryID,
		ItemCondition: req.ItemCondition,
		Sort:          req.Sort,
		Status:        &ongoing,
		ExcludeSeller: &principal.ID,
	}

	auctions, err := s.auctionRepo.List(ctx, filter, s.pageSize+1, (page-1)*s.pageSize)
	if err != nil {
		s.logger.Error().Err(err).Int("page", page).Msg("Failed to list auctions")
		return nil, err
	}

	return s.buildPage(ctx, auctions, principal.ID, page)
}

// ListWatched returns one page of the auctions the principal watches
func (s *AuctionService) ListWatched(ctx context.Context, principal *shared.User, page int) (*inbound.AuctionPage, error) {
	if page < 1 {
		page = 1
	}

	auctions, err := s.auctionRepo.ListWatchedBy(ctx, principal.ID, s.pageSize+1, (page-1)*s.pageSize)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", principal.ID.String()).Msg("Failed to list watched auctions")
		return nil, err
	}

	return s.buildPage(ctx, auctions, principal.ID, page)
}

// ListBidOn returns one page of the auctions the principal holds a bid on
func (s *AuctionService) ListBidOn(ctx context.Context, principal *shared.User, page int) (*inbound.AuctionPage, error) {
	if page < 1 {
		page = 1
	}

	auctions, err := s.auctionRepo.ListBidOnBy(ctx, principal.ID, s.pageSize+1, (page-1)*s.pageSize)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", principal.ID.String()).Msg("Failed to list bid-on auctions")
		return nil, err
	}

	return s.buildPage(ctx, auctions, principal.ID, page)
}

// ListSales returns one page of the principal's own listings
func (s *AuctionService) ListSales(ctx context.Context, principal *shared.User, page int) (*inbound.AuctionPage, error) {
	if page < 1 {
		page = 1
	}

	auctions, err := s.auctionRepo.ListBySeller(ctx, principal.ID, s.pageSize+1, (page-1)*s.pageSize)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", principal.ID.String()).Msg("Failed to list sales")
		return nil, err
	}

	return s.buildPage(ctx, auctions, principal.ID, page)
}

func (s *AuctionService) buildPage(ctx context.Context, auctions []*auction.Auction, principal uuid.UUID, page int) (*inbound.AuctionPage, error) {
	auctions, nextPage := trimPage(auctions, page, s.pageSize)

	views, err := s.views.auctionViews(ctx, auctions, principal)
	if err != nil {
		return nil, err
	}

	return &inbound.AuctionPage{
		Auctions: views,
		NextPage: nextPage,
		Loaded:   page != 1,
	}, nil
}

// Create validates and persists a new listing with its images, then
// broadcasts it to the auction room
func (s *AuctionService) Create(ctx context.Context, principal *shared.User, req inbound.CreateAuctionRequest) (*inbound.AuctionView, error) {
	s.logger.Info().
		Str("user_id", principal.ID.String()).
		Str("title", req.Title).
		Msg("Creating auction")

	if strings.TrimSpace(req.Title) == "" {
		return nil, shared.ErrTitleRequired
	}
	if req.StartingPrice <= 0 {
		return nil, shared.ErrInvalidStartingPrice
	}
	if req.BidIncrement <= 0 {
		return nil, shared.ErrInvalidBidIncrement
	}
	if len(req.Images) > maxAuctionImages {
		return nil, shared.ErrTooManyImages
	}

	duration, err := convertDuration(req.Duration)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	a := &auction.Auction{
		ID:              uuid.New(),
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		StartingPrice:   req.StartingPrice,
		CurrentPrice:    req.StartingPrice,
		BidIncrement:    req.BidIncrement,
		Status:          auction.StatusOngoing,
		SellerID:        principal.ID,
		CategoryID:      req.CategoryID,
		StartTime:       now,
		EndTime:         now.Add(duration),
		ShippingDetails: req.ShippingDetails,
		PaymentMethods:  req.PaymentMethods,
		ItemCondition:   req.ItemCondition,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	images, err := s.storeImages(ctx, a.ID, req.Images, now)
	if err != nil {
		return nil, err
	}

	if err := s.auctionRepo.CreateWithImages(ctx, a, images); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to persist auction")
		s.discardImages(ctx, images)
		return nil, err
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleAuction(a.ID, a.EndTime); err != nil {
			s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to schedule auction closing")
		}
	}

	view, err := s.views.auctionView(ctx, a, principal.ID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(ctx, outbound.RoomAuctions, outbound.Event{
		Source: "new_auction",
		Data:   view,
	})

	s.logger.Info().Str("auction_id", a.ID.String()).Msg("Auction created")
	return view, nil
}

func (s *AuctionService) storeImages(ctx context.Context, auctionID uuid.UUID, uploads []inbound.ImageUpload, now time.Time) ([]*auction.Image, error) {
	images := make([]*auction.Image, 0, len(uploads))
	for i, upload := range uploads {
		data, err := decodeBase64Image(upload.URI)
		if err != nil {
			s.discardImages(ctx, images)
			return nil, err
		}

		contentType, ext := contentTypeFor(upload.FileName)
		key := fmt.Sprintf("auctions/%s/%s%s", auctionID, uuid.New(), ext)

		url, err := s.blobStore.Put(ctx, key, data, contentType)
		if err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to store auction image")
			s.discardImages(ctx, images)
			return nil, err
		}

		images = append(images, &auction.Image{
			AuctionID:  auctionID,
			StorageKey: key,
			URL:        url,
			IsPrimary:  i == 0,
			Position:   i,
			UploadedAt: now,
		})
	}
	return images, nil
}

// discardImages best-effort removes already stored blobs after a failure
func (s *AuctionService) discardImages(ctx context.Context, images []*auction.Image) {
	for _, img := range images {
		if err := s.blobStore.Delete(ctx, img.StorageKey); err != nil {
			s.logger.Warn().Err(err).Str("key", img.StorageKey).Msg("Failed to discard image blob")
		}
	}
}

// PlaceBid runs the bidding transaction and broadcasts the updated listing
// to the auction room
func (s *AuctionService) PlaceBid(ctx context.Context, principal *shared.User, req inbound.PlaceBidRequest) (*inbound.AuctionView, error) {
	s.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("user_id", principal.ID.String()).
		Float64("baseline", req.Baseline).
		Msg("Placing bid")

	newBid, err := s.bidRepo.PlaceBid(ctx, req.AuctionID, principal.ID, req.Baseline)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("auction_id", req.AuctionID.String()).
			Str("user_id", principal.ID.String()).
			Msg("Bid rejected")
		return nil, err
	}

	a, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}

	view, err := s.views.auctionView(ctx, a, principal.ID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(ctx, outbound.RoomAuctions, outbound.Event{
		Source: "new_bid",
		Data:   view,
	})

	s.logger.Info().
		Str("bid_id", newBid.ID.String()).
		Str("auction_id", req.AuctionID.String()).
		Float64("amount", newBid.Amount).
		Msg("Bid placed and broadcasted")
	return view, nil
}

// ToggleWatch flips the principal's watch state and sends the updated
// listing back to their own sessions only
func (s *AuctionService) ToggleWatch(ctx context.Context, principal *shared.User, auctionID uuid.UUID) (*inbound.AuctionView, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	watching, err := s.auctionRepo.ToggleWatcher(ctx, auctionID, principal.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to toggle watcher")
		return nil, err
	}

	view, err := s.views.auctionView(ctx, a, principal.ID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(ctx, principal.Username, outbound.Event{
		Source: "watcher",
		Data:   view,
	})

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("user_id", principal.ID.String()).
		Bool("watching", watching).
		Msg("Watcher toggled")
	return view, nil
}

// Delete removes the principal's own listing and confirms the removal to
// their own sessions
func (s *AuctionService) Delete(ctx context.Context, principal *shared.User, auctionID uuid.UUID) error {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}

	if a.SellerID != principal.ID {
		return shared.ErrNotAuctionSeller
	}

	images, err := s.auctionRepo.ImagesByAuction(ctx, auctionID)
	if err != nil {
		return err
	}

	if err := s.auctionRepo.Delete(ctx, auctionID); err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to delete auction")
		return err
	}

	s.discardImages(ctx, images)

	if s.scheduler != nil {
		if err := s.scheduler.CancelAuction(auctionID); err != nil {
			s.logger.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to cancel scheduled closing")
		}
	}

	s.broadcaster.Publish(ctx, principal.Username, outbound.Event{
		Source: "delete_auction",
		Data:   map[string]interface{}{"id": auctionID.String()},
	})

	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction deleted")
	return nil
}

// CloseExpired ends an auction whose window elapsed, elects the winner and
// broadcasts the closed listing. Called by the expiry scheduler.
func (s *AuctionService) CloseExpired(ctx context.Context, auctionID uuid.UUID) (*inbound.AuctionView, error) {
	a, err := s.auctionRepo.Close(ctx, auctionID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to close auction")
		return nil, err
	}

	view, err := s.views.auctionView(ctx, a, uuid.Nil)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(ctx, outbound.RoomAuctions, outbound.Event{
		Source: "auction_closed",
		Data:   view,
	})

	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction closed")
	return view, nil
}

// convertDuration interprets the client's duration tuple as an offset from
// now: [minutes, seconds], [hours, minutes, seconds] or
// [days, hours, minutes, seconds].
func convertDuration(parts []int) (time.Duration, error) {
	for _, p := range parts {
		if p < 0 {
			return 0, shared.ErrInvalidDuration
		}
	}

	var d time.Duration
	switch len(parts) {
	case 2:
		d = time.Duration(parts[0])*time.Minute + time.Duration(parts[1])*time.Second
	case 3:
		d = time.Duration(parts[0])*time.Hour + time.Duration(parts[1])*time.Minute + time.Duration(parts[2])*time.Second
	case 4:
		d = time.Duration(parts[0])*24*time.Hour + time.Duration(parts[1])*time.Hour +
			time.Duration(parts[2])*time.Minute + time.Duration(parts[3])*time.Second
	default:
		return 0, shared.ErrInvalidDuration
	}

	if d <= 0 {
		return 0, shared.ErrInvalidDuration
	}
	return d, nil
}
