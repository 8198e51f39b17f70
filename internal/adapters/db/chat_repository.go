package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"solden-marketplace-service/internal/domain/chat"
	"solden-marketplace-service/internal/domain/shared"

	"github.com/google/uuid"
)

// ChatRepository implements the connection/message repository interface
type ChatRepository struct {
	conn *Connection
}

// NewChatRepository creates a new chat repository
func NewChatRepository(conn *Connection) *ChatRepository {
	return &ChatRepository{conn: conn}
}

// GetConnection retrieves a connection by ID
func (r *ChatRepository) GetConnection(ctx context.Context, id int64) (*chat.Connection, error) {
	query := `
		SELECT id, sender_id, receiver_id, created, updated
		FROM connections
		WHERE id = $1
	`

	var c chat.Connection
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.SenderID,
		&c.ReceiverID,
		&c.Created,
		&c.Updated,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return &c, nil
}

// ConnectionBetween finds the connection joining two users in either direction
func (r *ChatRepository) ConnectionBetween(ctx context.Context, a, b uuid.UUID) (*chat.Connection, error) {
	query := `
		SELECT id, sender_id, receiver_id, created, updated
		FROM connections
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
	`

	var c chat.Connection
	err := r.conn.GetDB().QueryRowContext(ctx, query, a, b).Scan(
		&c.ID,
		&c.SenderID,
		&c.ReceiverID,
		&c.Created,
		&c.Updated,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to get connection between users: %w", err)
	}

	return &c, nil
}

// CreateConnection persists a connection and its first message in one
// transaction, filling in generated IDs
func (r *ChatRepository) CreateConnection(ctx context.Context, conn *chat.Connection, first *chat.Message) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		connQuery := `
			INSERT INTO connections (sender_id, receiver_id, created, updated)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`

		err := tx.QueryRowContext(ctx, connQuery,
			conn.SenderID,
			conn.ReceiverID,
			conn.Created,
			conn.Updated,
		).Scan(&conn.ID)
		if err != nil {
			return fmt.Errorf("failed to create connection: %w", err)
		}

		if first == nil {
			return nil
		}

		first.ConnectionID = conn.ID

		msgQuery := `
			INSERT INTO messages (connection_id, author_id, content, auction_id, created, read)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`

		err = tx.QueryRowContext(ctx, msgQuery,
			first.ConnectionID,
			first.AuthorID,
			first.Content,
			first.AuctionID,
			first.Created,
			first.Read,
		).Scan(&first.ID)
		if err != nil {
			return fmt.Errorf("failed to create first message: %w", err)
		}

		return nil
	})
}

// CreateMessage persists a message and bumps the parent connection's updated
// timestamp in the same transaction
func (r *ChatRepository) CreateMessage(ctx context.Context, msg *chat.Message) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		msgQuery := `
			INSERT INTO messages (connection_id, author_id, content, auction_id, created, read)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`

		err := tx.QueryRowContext(ctx, msgQuery,
			msg.ConnectionID,
			msg.AuthorID,
			msg.Content,
			msg.AuctionID,
			msg.Created,
			msg.Read,
		).Scan(&msg.ID)
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		updateQuery := `UPDATE connections SET updated = $2 WHERE id = $1`

		result, err := tx.ExecContext(ctx, updateQuery, msg.ConnectionID, time.Now())
		if err != nil {
			return fmt.Errorf("failed to bump connection: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return shared.ErrConnectionNotFound
		}

		return nil
	})
}

// ListConversations returns the user's connections ordered by recency of their
// latest message (or creation), annotated with that message
func (r *ChatRepository) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*chat.Connection, error) {
	query := `
		SELECT c.id, c.sender_id, c.receiver_id, c.created, c.updated,
			COALESCE(m.content, ''), COALESCE(m.created, c.created)
		FROM connections c
		LEFT JOIN LATERAL (
			SELECT content, created
			FROM messages
			WHERE connection_id = c.id
			ORDER BY created DESC
			LIMIT 1
		) m ON TRUE
		WHERE c.sender_id = $1 OR c.receiver_id = $1
		ORDER BY COALESCE(m.created, c.created) DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conns []*chat.Connection
	for rows.Next() {
		var c chat.Connection
		err := rows.Scan(
			&c.ID,
			&c.SenderID,
			&c.ReceiverID,
			&c.Created,
			&c.Updated,
			&c.LastMessageContent,
			&c.LastMessageAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conns = append(conns, &c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conns, nil
}

// ListMessages returns a connection's messages newest first
func (r *ChatRepository) ListMessages(ctx context.Context, connectionID int64, limit, offset int) ([]*chat.Message, error) {
	query := `
		SELECT id, connection_id, author_id, content, auction_id, created, read
		FROM messages
		WHERE connection_id = $1
		ORDER BY created DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, connectionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*chat.Message
	for rows.Next() {
		var m chat.Message
		err := rows.Scan(
			&m.ID,
			&m.ConnectionID,
			&m.AuthorID,
			&m.Content,
			&m.AuctionID,
			&m.Created,
			&m.Read,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// MarkRead flags as read every unread message in the connection not authored
// by the reader
func (r *ChatRepository) MarkRead(ctx context.Context, connectionID int64, readerID uuid.UUID) (int64, error) {
	query := `
		UPDATE messages
		SET read = TRUE
		WHERE connection_id = $1 AND author_id <> $2 AND read = FALSE
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query, connectionID, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
