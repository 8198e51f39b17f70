package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"solden-marketplace-service/internal/domain/auction"
	"solden-marketplace-service/internal/domain/bid"
	"solden-marketplace-service/internal/domain/shared"

	"github.com/google/uuid"
)

// BidRepository implements the bid repository interface
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

/*
PlaceBid runs the bidding transaction:
 1. Re-read the auction row under lock
 2. Validate the auction is ongoing, inside its window and not the bidder's own
 3. Validate the client's baseline still matches the live current price
 4. Upsert the bidder's single bid row at current price + increment
 5. Move the auction's current price to the new amount

A stale baseline means another bid landed first; the client must refresh.
*/
func (r *BidRepository) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, baseline float64) (*bid.Bid, error) {
	var placed *bid.Bid

	err := r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		auctionQuery := `
			SELECT current_price, bid_increment, status, seller_id, start_time, end_time
			FROM auctions
			WHERE id = $1
			FOR UPDATE
		`

		var currentPrice, increment float64
		var status auction.Status
		var sellerID uuid.UUID
		var startTime, endTime time.Time
		err := tx.QueryRowContext(ctx, auctionQuery, auctionID).Scan(
			&currentPrice, &increment, &status, &sellerID, &startTime, &endTime,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to lock auction for bid: %w", err)
		}

		if sellerID == bidderID {
			return shared.ErrSellerCannotBid
		}

		now := time.Now()
		if status != auction.StatusOngoing {
			return shared.ErrAuctionNotAcceptingBids
		}
		if now.Before(startTime) {
			return shared.ErrAuctionNotStarted
		}
		if !now.Before(endTime) {
			return shared.ErrAuctionEnded
		}

		if currentPrice != baseline {
			return shared.ErrAuctionPriceChanged
		}

		amount := currentPrice + increment

		bidQuery := `
			INSERT INTO bids (id, auction_id, bidder_id, amount, placed_at, is_winner)
			VALUES ($1, $2, $3, $4, $5, FALSE)
			ON CONFLICT (auction_id, bidder_id)
			DO UPDATE SET amount = EXCLUDED.amount, placed_at = EXCLUDED.placed_at
			RETURNING id, placed_at
		`

		newBid := &bid.Bid{
			ID:        uuid.New(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
		}
		err = tx.QueryRowContext(ctx, bidQuery,
			newBid.ID,
			newBid.AuctionID,
			newBid.BidderID,
			newBid.Amount,
			now,
		).Scan(&newBid.ID, &newBid.PlacedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert bid: %w", err)
		}

		updateQuery := `
			UPDATE auctions
			SET current_price = $2, updated_at = $3
			WHERE id = $1
		`

		if _, err := tx.ExecContext(ctx, updateQuery, auctionID, amount, now); err != nil {
			return fmt.Errorf("failed to update auction price: %w", err)
		}

		placed = newBid
		return nil
	})
	if err != nil {
		return nil, err
	}

	return placed, nil
}

// ListByAuction retrieves all bids for an auction, highest first
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, placed_at, is_winner
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, placed_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		var b bid.Bid
		err := rows.Scan(
			&b.ID,
			&b.AuctionID,
			&b.BidderID,
			&b.Amount,
			&b.PlacedAt,
			&b.IsWinner,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// HighestBid retrieves the highest bid for an auction
func (r *BidRepository) HighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, placed_at, is_winner
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, placed_at ASC
		LIMIT 1
	`

	var b bid.Bid
	err := r.conn.GetDB().QueryRowContext(ctx, query, auctionID).Scan(
		&b.ID,
		&b.AuctionID,
		&b.BidderID,
		&b.Amount,
		&b.PlacedAt,
		&b.IsWinner,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}

	return &b, nil
}
