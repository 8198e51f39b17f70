package shared

import "errors"

// Domain-specific errors
var (
	// Authentication errors
	ErrTokenRequired = errors.New("no authentication token provided")
	ErrTokenInvalid  = errors.New("invalid authentication credentials")

	// Auction errors
	ErrAuctionNotFound         = errors.New("auction not found")
	ErrAuctionNotAcceptingBids = errors.New("auction is not accepting bids")
	ErrAuctionNotStarted       = errors.New("auction has not started")
	ErrAuctionEnded            = errors.New("auction has ended")
	ErrAuctionPriceChanged     = errors.New("auction price has changed, refresh and bid again")
	ErrSellerCannotBid         = errors.New("sellers cannot bid on their own auctions")
	ErrNotAuctionSeller        = errors.New("only the seller can modify the auction")
	ErrInvalidStartingPrice    = errors.New("starting price must be greater than 0")
	ErrInvalidBidIncrement     = errors.New("bid increment must be greater than 0")
	ErrInvalidDuration         = errors.New("invalid duration format")
	ErrTooManyImages           = errors.New("an auction can have at most 3 images")
	ErrCategoryNotFound        = errors.New("category not found")
	ErrNoBidsFound             = errors.New("no bids found")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Chat errors
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionExists   = errors.New("connection already exists")
	ErrNotConnectionParty = errors.New("not a participant of this connection")
	ErrSelfConnection     = errors.New("users cannot connect with themselves")
	ErrEmptyMessage       = errors.New("message content cannot be empty")

	// Validation errors
	ErrTitleRequired    = errors.New("title is required")
	ErrEmptySearchQuery = errors.New("empty search query")
	ErrInvalidBase64    = errors.New("invalid base64 image data")
	ErrInvalidImage     = errors.New("unrecognized image data")
	ErrMissingImageData = errors.New("missing required thumbnail data")
	ErrInvalidRequest   = errors.New("invalid request")

	// Router errors
	ErrInvalidMessageFormat = errors.New("invalid message format")
	ErrUnsupportedSource    = errors.New("unsupported message type")

	// Database errors
	ErrDatabaseTransaction = errors.New("database transaction failed")

	// Broadcasting errors
	ErrBroadcastFailed = errors.New("broadcast failed")
)

// clientVisible is the set of errors whose message may be forwarded to the
// originating connection as-is. Anything else is reported as a generic
// internal error at the router boundary.
var clientVisible = []error{
	ErrAuctionNotFound,
	ErrAuctionNotAcceptingBids,
	ErrAuctionNotStarted,
	ErrAuctionEnded,
	ErrAuctionPriceChanged,
	ErrSellerCannotBid,
	ErrNotAuctionSeller,
	ErrInvalidStartingPrice,
	ErrInvalidBidIncrement,
	ErrInvalidDuration,
	ErrTooManyImages,
	ErrCategoryNotFound,
	ErrUserNotFound,
	ErrConnectionNotFound,
	ErrConnectionExists,
	ErrNotConnectionParty,
	ErrSelfConnection,
	ErrEmptyMessage,
	ErrTitleRequired,
	ErrEmptySearchQuery,
	ErrInvalidBase64,
	ErrInvalidImage,
	ErrMissingImageData,
	ErrInvalidRequest,
	ErrInvalidMessageFormat,
	ErrUnsupportedSource,
}

// IsClientVisible reports whether err carries a message safe to surface to
// the client.
func IsClientVisible(err error) bool {
	for _, candidate := range clientVisible {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
