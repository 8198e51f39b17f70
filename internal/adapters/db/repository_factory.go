package db

import (
	"solden-marketplace-service/internal/ports/outbound"
)

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn *Connection
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// GetAuctionRepository returns the auction repository
func (f *RepositoryFactory) GetAuctionRepository() outbound.AuctionRepository {
	return NewAuctionRepository(f.conn)
}

// GetBidRepository returns the bid repository
func (f *RepositoryFactory) GetBidRepository() outbound.BidRepository {
	return NewBidRepository(f.conn)
}

// GetChatRepository returns the chat repository
func (f *RepositoryFactory) GetChatRepository() outbound.ChatRepository {
	return NewChatRepository(f.conn)
}

// GetUserRepository returns the user repository
func (f *RepositoryFactory) GetUserRepository() outbound.UserRepository {
	return NewUserRepository(f.conn)
}

// GetCategoryRepository returns the category repository
func (f *RepositoryFactory) GetCategoryRepository() outbound.CategoryRepository {
	return NewCategoryRepository(f.conn)
}
