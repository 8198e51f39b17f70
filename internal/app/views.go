package app

import (
	"context"
	"fmt"
	"time"

	"solden-marketplace-service/internal/domain/auction"
	"solden-marketplace-service/internal/domain/bid"
	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/inbound"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/google/uuid"
)

// viewBuilder assembles client-facing views from domain entities. Views are
// always built relative to a principal: is_me, isCurrentUser and bid status
// fields depend on who is looking.
type viewBuilder struct {
	auctionRepo  outbound.AuctionRepository
	bidRepo      outbound.BidRepository
	userRepo     outbound.UserRepository
	categoryRepo outbound.CategoryRepository
}

func buildUserView(u *shared.User) *inbound.UserView {
	if u == nil {
		return nil
	}
	return &inbound.UserView{
		UserID:      u.ID.String(),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Username:    u.Username,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Thumbnail:   u.Thumbnail,
	}
}

func buildCategoryView(c *auction.Category) *inbound.CategoryView {
	if c == nil {
		return nil
	}
	return &inbound.CategoryView{Key: c.ID, Value: c.Name}
}

func buildImageViews(images []*auction.Image) []*inbound.ImageView {
	views := make([]*inbound.ImageView, 0, len(images))
	for _, img := range images {
		views = append(views, &inbound.ImageView{
			ID:         img.ID,
			URL:        img.URL,
			IsPrimary:  img.IsPrimary,
			UploadedAt: img.UploadedAt,
		})
	}
	return views
}

func buildBidView(b *bid.Bid, bidder *shared.User, principal uuid.UUID, isHighest bool) *inbound.BidView {
	return &inbound.BidView{
		ID:            b.ID.String(),
		Auction:       b.AuctionID.String(),
		Bidder:        buildUserView(bidder),
		Amount:        b.Amount,
		PlacedAt:      b.PlacedAt,
		IsWinner:      b.IsWinner,
		IsHighestBid:  isHighest,
		IsCurrentUser: b.BidderID == principal,
		Status:        b.StatusFor(principal, isHighest),
	}
}

// auctionView assembles the full listing view: seller, winner, category,
// images, watcher usernames and the bid history, all relative to principal.
func (v *viewBuilder) auctionView(ctx context.Context, a *auction.Auction, principal uuid.UUID) (*inbound.AuctionView, error) {
	bids, err := v.bidRepo.ListByAuction(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	watcherIDs, err := v.auctionRepo.Watchers(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	images, err := v.auctionRepo.ImagesByAuction(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	// One batch load covers the seller, winner, bidders and watchers.
	ids := make([]uuid.UUID, 0, len(bids)+len(watcherIDs)+2)
	ids = append(ids, a.SellerID)
	if a.WinnerID != nil {
		ids = append(ids, *a.WinnerID)
	}
	for _, b := range bids {
		ids = append(ids, b.BidderID)
	}
	ids = append(ids, watcherIDs...)

	users, err := v.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var category *auction.Category
	if a.CategoryID != nil {
		category, err = v.categoryRepo.GetByID(ctx, *a.CategoryID)
		if err != nil && err != shared.ErrCategoryNotFound {
			return nil, err
		}
	}

	bidViews := make([]*inbound.BidView, 0, len(bids))
	var highest, userBid *inbound.BidView
	for i, b := range bids {
		view := buildBidView(b, users[b.BidderID], principal, i == 0)
		bidViews = append(bidViews, view)
		if i == 0 {
			highest = view
		}
		if b.BidderID == principal {
			userBid = view
		}
	}

	watchers := make([]string, 0, len(watcherIDs))
	for _, id := range watcherIDs {
		if u, ok := users[id]; ok {
			watchers = append(watchers, u.Username)
		}
	}

	var winner *inbound.UserView
	if a.WinnerID != nil {
		winner = buildUserView(users[*a.WinnerID])
	}

	now := time.Now()
	return &inbound.AuctionView{
		ID:              a.ID.String(),
		Title:           a.Title,
		Description:     a.Description,
		StartingPrice:   a.StartingPrice,
		CurrentPrice:    a.CurrentPrice,
		BidIncrement:    a.BidIncrement,
		Status:          string(a.Status),
		Seller:          buildUserView(users[a.SellerID]),
		Winner:          winner,
		Category:        buildCategoryView(category),
		Watchers:        watchers,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		ShippingDetails: a.ShippingDetails,
		PaymentMethods:  a.PaymentMethods,
		ItemCondition:   a.ItemCondition,
		Images:          buildImageViews(images),
		Bids:            bidViews,
		HighestBid:      highest,
		Duration:        formatDuration(a.Duration(now)),
		IsActive:        a.IsActive(now),
		HasEnded:        a.HasEnded(now),
		UserBid:         userBid,
	}, nil
}

func (v *viewBuilder) auctionViews(ctx context.Context, auctions []*auction.Auction, principal uuid.UUID) ([]*inbound.AuctionView, error) {
	views := make([]*inbound.AuctionView, 0, len(auctions))
	for _, a := range auctions {
		view, err := v.auctionView(ctx, a, principal)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// trimPage detects a next page: callers fetch pageSize+1 rows, the extra row
// only signals that more exist.
func trimPage[T any](items []T, page, pageSize int) ([]T, *int) {
	if len(items) <= pageSize {
		return items, nil
	}
	next := page + 1
	return items[:pageSize], &next
}

// formatDuration renders the remaining time in the coarse form the clients
// display, e.g. "2d 5h" or "45m 10s".
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
