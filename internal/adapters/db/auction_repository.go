package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"solden-marketplace-service/internal/domain/auction"
	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/google/uuid"
)

const auctionColumns = `id, title, description, starting_price, current_price, bid_increment, status,
	seller_id, winner_id, category_id, start_time, end_time,
	shipping_details, payment_methods, item_condition, created_at, updated_at`

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

func scanAuction(scanner interface {
	Scan(dest ...interface{}) error
}) (*auction.Auction, error) {
	var a auction.Auction
	err := scanner.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.StartingPrice,
		&a.CurrentPrice,
		&a.BidIncrement,
		&a.Status,
		&a.SellerID,
		&a.WinnerID,
		&a.CategoryID,
		&a.StartTime,
		&a.EndTime,
		&a.ShippingDetails,
		&a.PaymentMethods,
		&a.ItemCondition,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAuctions(rows *sql.Rows) ([]*auction.Auction, error) {
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}

// CreateWithImages creates an auction and its image rows in one transaction
func (r *AuctionRepository) CreateWithImages(ctx context.Context, a *auction.Auction, images []*auction.Image) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		auctionQuery := `
			INSERT INTO auctions (id, title, description, starting_price, current_price, bid_increment, status,
				seller_id, winner_id, category_id, start_time, end_time,
				shipping_details, payment_methods, item_condition, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`

		_, err := tx.ExecContext(ctx, auctionQuery,
			a.ID,
			a.Title,
			a.Description,
			a.StartingPrice,
			a.CurrentPrice,
			a.BidIncrement,
			a.Status,
			a.SellerID,
			a.WinnerID,
			a.CategoryID,
			a.StartTime,
			a.EndTime,
			a.ShippingDetails,
			a.PaymentMethods,
			a.ItemCondition,
			a.CreatedAt,
			a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create auction: %w", err)
		}

		imageQuery := `
			INSERT INTO auction_images (auction_id, storage_key, url, is_primary, position, uploaded_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`

		for _, img := range images {
			err := tx.QueryRowContext(ctx, imageQuery,
				img.AuctionID,
				img.StorageKey,
				img.URL,
				img.IsPrimary,
				img.Position,
				img.UploadedAt,
			).Scan(&img.ID)
			if err != nil {
				return fmt.Errorf("failed to create auction image: %w", err)
			}
		}

		return nil
	})
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	a, err := scanAuction(r.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return a, nil
}

// List retrieves a filtered page of auctions
func (r *AuctionRepository) List(ctx context.Context, filter outbound.AuctionFilter, limit, offset int) ([]*auction.Auction, error) {
	baseQuery := `SELECT ` + auctionColumns + ` FROM auctions`

	var whereClause string
	var args []interface{}
	argCount := 1

	addClause := func(clause string, value interface{}) {
		if whereClause == "" {
			whereClause = " WHERE "
		} else {
			whereClause += " AND "
		}
		whereClause += fmt.Sprintf(clause, argCount)
		args = append(args, value)
		argCount++
	}

	if filter.Status != nil {
		addClause("status = $%d", *filter.Status)
	}
	if filter.CategoryID != nil {
		addClause("category_id = $%d", *filter.CategoryID)
	}
	if filter.ItemCondition != "" {
		addClause("item_condition = $%d", filter.ItemCondition)
	}
	if filter.ExcludeSeller != nil {
		addClause("seller_id <> $%d", *filter.ExcludeSeller)
	}

	orderClause := " ORDER BY created_at DESC"
	switch filter.Sort {
	case outbound.SortPriceAsc:
		orderClause = " ORDER BY current_price ASC"
	case outbound.SortPriceDesc:
		orderClause = " ORDER BY current_price DESC"
	case outbound.SortPopular:
		orderClause = ` ORDER BY (SELECT COUNT(*) FROM auction_watchers w WHERE w.auction_id = auctions.id) DESC,
			created_at DESC`
	case outbound.SortOldest:
		orderClause = " ORDER BY created_at ASC"
	case outbound.SortNewest:
		orderClause = " ORDER BY created_at DESC"
	}

	limitClause := fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, limit, offset)

	query := baseQuery + whereClause + orderClause + limitClause

	rows, err := r.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}

	return collectAuctions(rows)
}

// Search matches auction titles case-insensitively, excluding the searcher's
// own listings
func (r *AuctionRepository) Search(ctx context.Context, query string, excludeSeller uuid.UUID) ([]*auction.Auction, error) {
	searchQuery := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE title ILIKE '%' || $1 || '%' AND seller_id <> $2 AND status = 'ongoing'
		ORDER BY created_at DESC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, searchQuery, query, excludeSeller)
	if err != nil {
		return nil, fmt.Errorf("failed to search auctions: %w", err)
	}

	return collectAuctions(rows)
}

// ListWatchedBy retrieves auctions the user watches, newest first
func (r *AuctionRepository) ListWatchedBy(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*auction.Auction, error) {
	query := `
		SELECT ` + prefixedAuctionColumns("a") + `
		FROM auctions a
		JOIN auction_watchers w ON w.auction_id = a.id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched auctions: %w", err)
	}

	return collectAuctions(rows)
}

// ListBidOnBy retrieves auctions the user holds a bid on, newest first
func (r *AuctionRepository) ListBidOnBy(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*auction.Auction, error) {
	query := `
		SELECT ` + prefixedAuctionColumns("a") + `
		FROM auctions a
		JOIN bids b ON b.auction_id = a.id
		WHERE b.bidder_id = $1
		ORDER BY b.placed_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bid-on auctions: %w", err)
	}

	return collectAuctions(rows)
}

// ListBySeller retrieves the seller's own listings, newest first
func (r *AuctionRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, sellerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions by seller: %w", err)
	}

	return collectAuctions(rows)
}

// ToggleWatcher flips the user's membership in the auction's watcher set and
// reports the resulting state
func (r *AuctionRepository) ToggleWatcher(ctx context.Context, auctionID, userID uuid.UUID) (bool, error) {
	var watching bool

	err := r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		deleteQuery := `DELETE FROM auction_watchers WHERE auction_id = $1 AND user_id = $2`

		result, err := tx.ExecContext(ctx, deleteQuery, auctionID, userID)
		if err != nil {
			return fmt.Errorf("failed to remove watcher: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected > 0 {
			watching = false
			return nil
		}

		insertQuery := `
			INSERT INTO auction_watchers (auction_id, user_id, created_at)
			VALUES ($1, $2, $3)
		`

		if _, err := tx.ExecContext(ctx, insertQuery, auctionID, userID, time.Now()); err != nil {
			return fmt.Errorf("failed to add watcher: %w", err)
		}

		watching = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return watching, nil
}

// Watchers returns the ids of users watching the auction
func (r *AuctionRepository) Watchers(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM auction_watchers WHERE auction_id = $1 ORDER BY created_at ASC`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watchers: %w", err)
	}
	defer rows.Close()

	var watchers []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan watcher: %w", err)
		}
		watchers = append(watchers, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchers: %w", err)
	}

	return watchers, nil
}

// ImagesByAuction returns the auction's images in position order
func (r *AuctionRepository) ImagesByAuction(ctx context.Context, auctionID uuid.UUID) ([]*auction.Image, error) {
	query := `
		SELECT id, auction_id, storage_key, url, is_primary, position, uploaded_at
		FROM auction_images
		WHERE auction_id = $1
		ORDER BY position ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction images: %w", err)
	}
	defer rows.Close()

	var images []*auction.Image
	for rows.Next() {
		var img auction.Image
		err := rows.Scan(
			&img.ID,
			&img.AuctionID,
			&img.StorageKey,
			&img.URL,
			&img.IsPrimary,
			&img.Position,
			&img.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction image: %w", err)
		}
		images = append(images, &img)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auction images: %w", err)
	}

	return images, nil
}

// Delete deletes an auction; bids, images and watcher rows cascade
func (r *AuctionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM auctions WHERE id = $1`

	result, err := r.conn.GetDB().ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete auction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrAuctionNotFound
	}

	return nil
}

// Close marks an ongoing auction ended, flags the highest bid as winner and
// records the winner on the auction, all in one transaction
func (r *AuctionRepository) Close(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	var closed *auction.Auction

	err := r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		lockQuery := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`

		a, err := scanAuction(tx.QueryRowContext(ctx, lockQuery, id))
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to lock auction for close: %w", err)
		}

		if a.Status != auction.StatusOngoing {
			closed = a
			return nil
		}

		winnerQuery := `
			SELECT id, bidder_id
			FROM bids
			WHERE auction_id = $1
			ORDER BY amount DESC, placed_at ASC
			LIMIT 1
		`

		var winningBidID uuid.UUID
		var winnerID uuid.UUID
		err = tx.QueryRowContext(ctx, winnerQuery, id).Scan(&winningBidID, &winnerID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to find winning bid: %w", err)
		}

		now := time.Now()
		a.Status = auction.StatusEnded
		a.UpdatedAt = now

		if err == nil {
			a.WinnerID = &winnerID

			markQuery := `UPDATE bids SET is_winner = TRUE WHERE id = $1`
			if _, err := tx.ExecContext(ctx, markQuery, winningBidID); err != nil {
				return fmt.Errorf("failed to mark winning bid: %w", err)
			}
		}

		updateQuery := `
			UPDATE auctions
			SET status = $2, winner_id = $3, updated_at = $4
			WHERE id = $1
		`

		if _, err := tx.ExecContext(ctx, updateQuery, a.ID, a.Status, a.WinnerID, a.UpdatedAt); err != nil {
			return fmt.Errorf("failed to close auction: %w", err)
		}

		closed = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return closed, nil
}

func prefixedAuctionColumns(alias string) string {
	return alias + `.id, ` + alias + `.title, ` + alias + `.description, ` + alias + `.starting_price, ` +
		alias + `.current_price, ` + alias + `.bid_increment, ` + alias + `.status, ` +
		alias + `.seller_id, ` + alias + `.winner_id, ` + alias + `.category_id, ` +
		alias + `.start_time, ` + alias + `.end_time, ` + alias + `.shipping_details, ` +
		alias + `.payment_methods, ` + alias + `.item_condition, ` + alias + `.created_at, ` + alias + `.updated_at`
}
