package auction

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an auction.
//
// draft -> ongoing -> {ended, cancelled}
// ended -> completed -> paid -> shipped -> delivered
type Status string

const (
	StatusDraft     Status = "draft"
	StatusOngoing   Status = "ongoing"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// Item conditions accepted at creation time.
const (
	ConditionNew         = "new"
	ConditionLikeNew     = "like_new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
	ConditionForParts    = "for_parts"
)

// Auction is a listing offered by a seller.
type Auction struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StartingPrice   float64    `json:"starting_price"`
	CurrentPrice    float64    `json:"current_price"`
	BidIncrement    float64    `json:"bid_increment"`
	Status          Status     `json:"status"`
	SellerID        uuid.UUID  `json:"seller_id"`
	WinnerID        *uuid.UUID `json:"winner_id,omitempty"`
	CategoryID      *int64     `json:"category_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	ShippingDetails string     `json:"shipping_details"`
	PaymentMethods  string     `json:"payment_methods"`
	ItemCondition   string     `json:"item_condition"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Category groups auctions for browsing.
type Category struct {
	ID   int64  `json:"key"`
	Name string `json:"value"`
}

// Image is one of up to three pictures attached to an auction. Exactly one
// image is primary whenever any exist.
type Image struct {
	ID         int64     `json:"id"`
	AuctionID  uuid.UUID `json:"-"`
	StorageKey string    `json:"-"`
	URL        string    `json:"image_url"`
	IsPrimary  bool      `json:"is_primary"`
	Position   int       `json:"position"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// IsActive reports whether bidding is open right now.
func (a *Auction) IsActive(now time.Time) bool {
	return a.Status == StatusOngoing && !now.Before(a.StartTime) && now.Before(a.EndTime)
}

// HasEnded reports whether the listing is past its window or closed.
func (a *Auction) HasEnded(now time.Time) bool {
	return a.Status != StatusOngoing || !now.Before(a.EndTime)
}

// Duration returns the remaining time until the auction closes, floored at zero.
func (a *Auction) Duration(now time.Time) time.Duration {
	if !now.Before(a.EndTime) {
		return 0
	}
	return a.EndTime.Sub(now)
}
