package inbound

import "time"

// View DTOs sent to clients. Field names mirror the wire contract the mobile
// client already speaks.

type UserView struct {
	UserID      string `json:"userId"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Thumbnail   string `json:"thumbnail"`
}

type CategoryView struct {
	Key   int64  `json:"key"`
	Value string `json:"value"`
}

type ImageView struct {
	ID         int64     `json:"id"`
	URL        string    `json:"image_url"`
	IsPrimary  bool      `json:"is_primary"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type BidView struct {
	ID            string    `json:"id"`
	Auction       string    `json:"auction"`
	Bidder        *UserView `json:"bidder"`
	Amount        float64   `json:"amount"`
	PlacedAt      time.Time `json:"placed_at"`
	IsWinner      bool      `json:"is_winner"`
	IsHighestBid  bool      `json:"is_highest_bid"`
	IsCurrentUser bool      `json:"isCurrentUser"`
	Status        string    `json:"status,omitempty"`
}

type AuctionView struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	StartingPrice   float64       `json:"starting_price"`
	CurrentPrice    float64       `json:"current_price"`
	BidIncrement    float64       `json:"bid_increment"`
	Status          string        `json:"status"`
	Seller          *UserView     `json:"seller"`
	Winner          *UserView     `json:"winner"`
	Category        *CategoryView `json:"category"`
	Watchers        []string      `json:"watchers"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ShippingDetails string        `json:"shipping_details"`
	PaymentMethods  string        `json:"payment_methods"`
	ItemCondition   string        `json:"item_condition"`
	Images          []*ImageView  `json:"images"`
	Bids            []*BidView    `json:"bids"`
	HighestBid      *BidView      `json:"highest_bid"`
	Duration        string        `json:"duration"`
	IsActive        bool          `json:"is_active"`
	HasEnded        bool          `json:"has_ended"`
	UserBid         *BidView      `json:"user_bid"`
}

// AuctionPage is one page of a cursor-paginated auction listing.
type AuctionPage struct {
	Auctions []*AuctionView `json:"auctions"`
	NextPage *int           `json:"nextPage"`
	Loaded   bool           `json:"loaded"`
}

type ConversationView struct {
	ConnectionID       int64     `json:"connectionId"`
	Friend             *UserView `json:"friend"`
	LastMessageContent string    `json:"last_message_content"`
	LastUpdated        time.Time `json:"last_updated"`
}

type ConversationPage struct {
	Conversations []*ConversationView `json:"conversations"`
	NextPage      *int                `json:"nextPage"`
	Loaded        bool                `json:"loaded"`
}

type MessageView struct {
	ID      int64        `json:"id"`
	IsMe    bool         `json:"is_me"`
	Content string       `json:"content"`
	Created time.Time    `json:"created"`
	Read    bool         `json:"read"`
	Auction *AuctionView `json:"auction,omitempty"`
}

// MessagePage is one page of a connection's messages plus the counterpart's
// profile, newest first.
type MessagePage struct {
	ConnectionID int64          `json:"connectionId"`
	Messages     []*MessageView `json:"messages"`
	Friend       *UserView      `json:"friend"`
	NextPage     *int           `json:"nextPage"`
	Loaded       bool           `json:"loaded"`
}

// MessageDelivery pairs a per-recipient message view with the counterpart's
// profile, the shape both parties receive on message_send / new_connection.
type MessageDelivery struct {
	Message *MessageView `json:"message"`
	Friend  *UserView    `json:"friend"`
}

// ConnectionCheck answers the REST bootstrap: does the viewer already share a
// connection with the seller, and if so, its first page of messages.
type ConnectionCheck struct {
	IsConnected bool              `json:"isConnected"`
	Connection  *ConversationView `json:"connection,omitempty"`
	Messages    []*MessageView    `json:"messages,omitempty"`
}
