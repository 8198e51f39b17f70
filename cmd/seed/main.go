package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"solden-marketplace-service/internal/adapters/db"
	"solden-marketplace-service/internal/auth"
	"solden-marketplace-service/internal/config"
	"solden-marketplace-service/internal/domain/auction"
	"solden-marketplace-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Seed the database with demo data and print WebSocket tokens for manual
// testing.
func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	// Bail out if the database is already populated.
	var userCount int
	if err := dbConn.GetDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
		log.Fatalf("Failed to check users: %v", err)
	}
	if userCount > 0 {
		fmt.Printf("Database already has %d users. No need to seed.\n", userCount)
		os.Exit(0)
	}

	repoFactory := db.NewRepositoryFactory(dbConn)
	userRepo := repoFactory.GetUserRepository()
	auctionRepo := repoFactory.GetAuctionRepository()

	// Categories
	categoryNames := []string{"Electronics", "Fashion", "Home & Garden", "Sports", "Collectibles"}
	categoryIDs := make([]int64, 0, len(categoryNames))
	for _, name := range categoryNames {
		var id int64
		err := dbConn.GetDB().QueryRowContext(ctx,
			"INSERT INTO categories (name) VALUES ($1) RETURNING id", name).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to create category %q: %v", name, err)
		}
		categoryIDs = append(categoryIDs, id)
	}

	// Users, all with password "password123"
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now()
	newUser := func(first, last, username string) *shared.User {
		return &shared.User{
			ID:           uuid.New(),
			FirstName:    first,
			LastName:     last,
			Username:     username,
			Email:        username + "@example.com",
			PhoneNumber:  "+15550000000",
			PasswordHash: string(hash),
			Thumbnail:    shared.DefaultThumbnail,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	users := []*shared.User{
		newUser("Alice", "Nguyen", "alice"),
		newUser("Bob", "Martin", "bob"),
		newUser("Carol", "Diaz", "carol"),
	}
	for _, u := range users {
		if err := userRepo.Create(ctx, u); err != nil {
			log.Fatalf("Failed to create user %s: %v", u.Username, err)
		}
	}

	// A couple of ongoing auctions sold by alice
	newAuction := func(title, description string, price, increment float64, categoryID int64, window time.Duration) *auction.Auction {
		return &auction.Auction{
			ID:            uuid.New(),
			Title:         title,
			Description:   description,
			StartingPrice: price,
			CurrentPrice:  price,
			BidIncrement:  increment,
			Status:        auction.StatusOngoing,
			SellerID:      users[0].ID,
			CategoryID:    &categoryID,
			StartTime:     now,
			EndTime:       now.Add(window),
			ItemCondition: auction.ConditionUsed,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	auctions := []*auction.Auction{
		newAuction("Vintage film camera", "Fully working, light wear", 120, 5, categoryIDs[0], 48*time.Hour),
		newAuction("Road bike, 54cm frame", "Recently serviced", 350, 10, categoryIDs[3], 72*time.Hour),
	}
	for _, a := range auctions {
		if err := auctionRepo.CreateWithImages(ctx, a, nil); err != nil {
			log.Fatalf("Failed to create auction %q: %v", a.Title, err)
		}
	}

	// Print long-lived tokens for connecting test clients
	gate := auth.NewGate(auth.GateParams{
		Secret:   cfg.Auth.JWTSecret,
		UserRepo: userRepo,
		Logger:   zerolog.Nop(),
	})

	fmt.Println("Successfully seeded the database!")
	for _, u := range users {
		token, err := gate.GenerateToken(u.ID, u.Username, 30*24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to generate token for %s: %v", u.Username, err)
		}
		fmt.Printf("%s: %s\n", u.Username, token)
	}
}
