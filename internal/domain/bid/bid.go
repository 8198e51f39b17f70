package bid

import (
	"time"

	"github.com/google/uuid"
)

// Bid is the current offer a bidder holds on an auction. There is exactly one
// bid row per (auction, bidder) pair; a re-bid overwrites the amount.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction"`
	BidderID  uuid.UUID `json:"-"`
	Amount    float64   `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
	IsWinner  bool      `json:"is_winner"`
}

// Status of a bid relative to the viewing user.
const (
	StatusWinner  = "winner"
	StatusWinning = "winning"
	StatusOutbid  = "outbid"
)

// StatusFor computes the viewer-relative status. Returns "" for bids that do
// not belong to the viewer.
func (b *Bid) StatusFor(viewer uuid.UUID, isHighest bool) string {
	if b.BidderID != viewer {
		return ""
	}
	switch {
	case b.IsWinner:
		return StatusWinner
	case isHighest:
		return StatusWinning
	default:
		return StatusOutbid
	}
}
