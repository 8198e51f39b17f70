package inbound

import (
	"context"

	"solden-marketplace-service/internal/domain/shared"

	"github.com/google/uuid"
)

// ImageUpload is a client-supplied image: base64 payload (optionally with a
// data-URI prefix) plus the original filename.
type ImageUpload struct {
	URI      string `json:"uri"`
	FileName string `json:"fileName"`
}

// CreateAuctionRequest carries a new listing. Duration is a 2-4 element
// tuple [days?, hours?, minutes, seconds] interpreted as an offset from now.
type CreateAuctionRequest struct {
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	StartingPrice   float64       `json:"starting_price"`
	BidIncrement    float64       `json:"bid_increment"`
	CategoryID      *int64        `json:"category"`
	Duration        []int         `json:"end_time"`
	ShippingDetails string        `json:"shipping_details"`
	PaymentMethods  string        `json:"payment_methods"`
	ItemCondition   string        `json:"item_condition"`
	Images          []ImageUpload `json:"images"`
}

// PlaceBidRequest carries a bid. Baseline is the price the client saw; the
// engine verifies it still matches before applying the increment.
type PlaceBidRequest struct {
	AuctionID uuid.UUID `json:"auctionId"`
	Baseline  float64   `json:"amount"`
}

// ListAuctionsRequest drives the category browse.
type ListAuctionsRequest struct {
	CategoryID    *int64 `json:"categoryId"`
	ItemCondition string `json:"item_condition"`
	Sort          string `json:"sort"`
	Page          int    `json:"page"`
}

// AuctionService implements the bidding engine and the query/pagination
// service. Mutating operations publish their own broadcasts (room-wide or
// personal); query operations return pages for the caller to deliver.
type AuctionService interface {
	Search(ctx context.Context, principal *shared.User, query string) ([]*AuctionView, error)
	ListByCategory(ctx context.Context, principal *shared.User, req ListAuctionsRequest) (*AuctionPage, error)
	ListWatched(ctx context.Context, principal *shared.User, page int) (*AuctionPage, error)
	ListBidOn(ctx context.Context, principal *shared.User, page int) (*AuctionPage, error)
	ListSales(ctx context.Context, principal *shared.User, page int) (*AuctionPage, error)

	Create(ctx context.Context, principal *shared.User, req CreateAuctionRequest) (*AuctionView, error)
	PlaceBid(ctx context.Context, principal *shared.User, req PlaceBidRequest) (*AuctionView, error)
	ToggleWatch(ctx context.Context, principal *shared.User, auctionID uuid.UUID) (*AuctionView, error)
	Delete(ctx context.Context, principal *shared.User, auctionID uuid.UUID) error

	// CloseExpired ends an auction whose window elapsed, elects the winner
	// and broadcasts the closed listing room-wide. Called by the scheduler.
	CloseExpired(ctx context.Context, auctionID uuid.UUID) (*AuctionView, error)
}

// SendMessageRequest carries a chat message, optionally sharing an auction.
type SendMessageRequest struct {
	ConnectionID int64      `json:"connectionId"`
	Content      string     `json:"content"`
	AuctionID    *uuid.UUID `json:"auctionId,omitempty"`
}

// StartConnectionRequest opens a fresh connection with a first message.
type StartConnectionRequest struct {
	ReceiverID uuid.UUID `json:"receiverId"`
	Content    string    `json:"content"`
}

// ThumbnailRequest replaces the principal's profile image.
type ThumbnailRequest struct {
	Base64   string `json:"base64"`
	Filename string `json:"filename"`
}

// TypingRequest signals a typing indicator to the named recipient.
type TypingRequest struct {
	ConnectionID int64  `json:"connectionId"`
	Recipient    string `json:"recipient"`
}

// ChatService implements the chat delivery engine. Message sends and
// acknowledgements publish to the parties' personal groups themselves.
type ChatService interface {
	UpdateThumbnail(ctx context.Context, principal *shared.User, req ThumbnailRequest) (*UserView, error)
	Conversations(ctx context.Context, principal *shared.User, page int) (*ConversationPage, error)
	SendMessage(ctx context.Context, principal *shared.User, req SendMessageRequest) error
	StartConnection(ctx context.Context, principal *shared.User, req StartConnectionRequest) error
	FetchMessages(ctx context.Context, principal *shared.User, connectionID int64, page int) (*MessagePage, error)
	MarkRead(ctx context.Context, principal *shared.User, connectionID int64) error
	Typing(ctx context.Context, principal *shared.User, req TypingRequest) error

	// CheckConnection answers the REST bootstrap between a viewer and a
	// seller profile.
	CheckConnection(ctx context.Context, principal *shared.User, sellerID uuid.UUID) (*ConnectionCheck, error)
}
