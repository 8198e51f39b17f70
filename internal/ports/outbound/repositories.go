package outbound

import (
	"context"

	"solden-marketplace-service/internal/domain/auction"
	"solden-marketplace-service/internal/domain/bid"
	"solden-marketplace-service/internal/domain/chat"
	"solden-marketplace-service/internal/domain/shared"

	"github.com/google/uuid"
)

// Sort orders accepted by the category browse.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortPopular   = "popular"
	SortNewest    = "newest"
	SortOldest    = "oldest"
)

// AuctionFilter narrows a browse listing. Clauses apply sequentially; the
// last sort clause wins.
type AuctionFilter struct {
	CategoryID    *int64
	ItemCondition string
	Sort          string
	Status        *auction.Status
	ExcludeSeller *uuid.UUID
}

// AuctionRepository defines the interface for auction data operations.
type AuctionRepository interface {
	// CreateWithImages persists an auction and its image rows in one
	// transaction; nothing persists if any row fails.
	CreateWithImages(ctx context.Context, a *auction.Auction, images []*auction.Image) error

	// GetByID retrieves an auction by id.
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// List retrieves a filtered page of auctions. limit may exceed the page
	// size by one so the caller can detect a next page.
	List(ctx context.Context, filter AuctionFilter, limit, offset int) ([]*auction.Auction, error)

	// Search matches titles case-insensitively (prefix or substring),
	// excluding the searcher's own listings.
	Search(ctx context.Context, query string, excludeSeller uuid.UUID) ([]*auction.Auction, error)

	// ListWatchedBy retrieves auctions the user watches, newest first.
	ListWatchedBy(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*auction.Auction, error)

	// ListBidOnBy retrieves auctions the user holds a bid on, newest first.
	ListBidOnBy(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*auction.Auction, error)

	// ListBySeller retrieves the user's own listings, newest first.
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*auction.Auction, error)

	// ToggleWatcher flips the user's membership in the auction's watcher
	// set and reports the resulting state.
	ToggleWatcher(ctx context.Context, auctionID, userID uuid.UUID) (bool, error)

	// Watchers returns the ids of users watching the auction.
	Watchers(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error)

	// ImagesByAuction returns the auction's images in position order.
	ImagesByAuction(ctx context.Context, auctionID uuid.UUID) ([]*auction.Image, error)

	// Delete removes the auction; bids, images and watcher rows cascade.
	Delete(ctx context.Context, id uuid.UUID) error

	// Close marks an ongoing auction ended, flags the highest bid as the
	// winner and records the winner on the auction, all in one
	// transaction. Returns the closed auction.
	Close(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
}

// BidRepository defines the interface for bid data operations.
type BidRepository interface {
	// PlaceBid runs the bidding transaction: re-reads the auction row under
	// lock, validates the client baseline against the live current price,
	// upserts the (auction, bidder) bid row at current+increment and moves
	// the auction's current price. Returns the resulting bid.
	PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, baseline float64) (*bid.Bid, error)

	// ListByAuction returns bids ordered amount desc, placed_at asc.
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// HighestBid returns the top bid or shared.ErrNoBidsFound.
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)
}

// ChatRepository defines the interface for connection/message data operations.
type ChatRepository interface {
	// GetConnection retrieves a connection by id.
	GetConnection(ctx context.Context, id int64) (*chat.Connection, error)

	// ConnectionBetween finds the connection joining two users in either
	// direction, or shared.ErrConnectionNotFound.
	ConnectionBetween(ctx context.Context, a, b uuid.UUID) (*chat.Connection, error)

	// CreateConnection persists a connection and its first message in one
	// transaction, filling in generated ids.
	CreateConnection(ctx context.Context, conn *chat.Connection, first *chat.Message) error

	// CreateMessage persists a message and bumps the parent connection's
	// updated timestamp in the same transaction.
	CreateMessage(ctx context.Context, msg *chat.Message) error

	// ListConversations returns the user's connections ordered by recency
	// of their latest message (or creation), annotated with that message.
	ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*chat.Connection, error)

	// ListMessages returns a connection's messages newest first.
	ListMessages(ctx context.Context, connectionID int64, limit, offset int) ([]*chat.Message, error)

	// MarkRead flags as read every unread message in the connection not
	// authored by reader. Returns the number of rows updated.
	MarkRead(ctx context.Context, connectionID int64, readerID uuid.UUID) (int64, error)
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error)
	GetByUsername(ctx context.Context, username string) (*shared.User, error)

	// GetByIDs batch-loads users, keyed by id. Missing ids are absent from
	// the map, not an error.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*shared.User, error)

	Create(ctx context.Context, user *shared.User) error

	// UpdateThumbnail replaces the stored thumbnail URL.
	UpdateThumbnail(ctx context.Context, userID uuid.UUID, url string) error
}

// CategoryRepository defines the interface for category lookups.
type CategoryRepository interface {
	List(ctx context.Context) ([]*auction.Category, error)
	GetByID(ctx context.Context, id int64) (*auction.Category, error)
}
