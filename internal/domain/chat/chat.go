package chat

import (
	"time"

	"github.com/google/uuid"
)

// Connection pairs two users for messaging. The pair is unique regardless of
// which side initiated it; sender/receiver only record who opened it.
type Connection struct {
	ID         int64     `json:"connectionId"`
	SenderID   uuid.UUID `json:"-"`
	ReceiverID uuid.UUID `json:"-"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`

	// LastMessageContent and LastMessageAt annotate conversation listings.
	// Empty when the connection carries no messages yet.
	LastMessageContent string    `json:"-"`
	LastMessageAt      time.Time `json:"-"`
}

// Involves reports whether the user is one of the two parties.
func (c *Connection) Involves(userID uuid.UUID) bool {
	return c.SenderID == userID || c.ReceiverID == userID
}

// CounterpartOf returns the other party of the pair.
func (c *Connection) CounterpartOf(userID uuid.UUID) uuid.UUID {
	if c.SenderID == userID {
		return c.ReceiverID
	}
	return c.SenderID
}

// Message is a single chat message inside a connection. Immutable after
// creation except for the read flag.
type Message struct {
	ID           int64      `json:"id"`
	ConnectionID int64      `json:"-"`
	AuthorID     uuid.UUID  `json:"-"`
	Content      string     `json:"content"`
	AuctionID    *uuid.UUID `json:"-"`
	Created      time.Time  `json:"created"`
	Read         bool       `json:"read"`
}
