package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"solden-marketplace-service/internal/domain/chat"
	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/inbound"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// thumbnailSize is the bounding box profile thumbnails are scaled into.
const thumbnailSize = 125

// ChatService implements the chat delivery use cases. Personal broadcast
// groups are keyed by username.
type ChatService struct {
	views        viewBuilder
	chatRepo     outbound.ChatRepository
	userRepo     outbound.UserRepository
	blobStore    outbound.BlobStore
	broadcaster  outbound.Broadcaster
	convPageSize int
	msgPageSize  int
	logger       zerolog.Logger
}

type ChatServiceParams struct {
	ChatRepo     outbound.ChatRepository
	UserRepo     outbound.UserRepository
	AuctionRepo  outbound.AuctionRepository
	BidRepo      outbound.BidRepository
	CategoryRepo outbound.CategoryRepository
	BlobStore    outbound.BlobStore
	Broadcaster  outbound.Broadcaster
	ConvPageSize int
	MsgPageSize  int
	Logger       zerolog.Logger
}

// NewChatService creates a new chat service
func NewChatService(params ChatServiceParams) *ChatService {
	return &ChatService{
		views: viewBuilder{
			auctionRepo:  params.AuctionRepo,
			bidRepo:      params.BidRepo,
			userRepo:     params.UserRepo,
			categoryRepo: params.CategoryRepo,
		},
		chatRepo:     params.ChatRepo,
		userRepo:     params.UserRepo,
		blobStore:    params.BlobStore,
		broadcaster:  params.Broadcaster,
		convPageSize: params.ConvPageSize,
		msgPageSize:  params.MsgPageSize,
		logger:       params.Logger.With().Str("component", "chat_service").Logger(),
	}
}

// UpdateThumbnail decodes the uploaded image, scales it into the thumbnail
// bounding box and replaces the principal's stored profile image
func (s *ChatService) UpdateThumbnail(ctx context.Context, principal *shared.User, req inbound.ThumbnailRequest) (*inbound.UserView, error) {
	// The cleanup below needs the pre-upload thumbnail.
	previous := *principal

	data, err := decodeBase64Image(req.Base64)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", principal.ID.String()).Msg("Rejected undecodable thumbnail upload")
		return nil, shared.ErrInvalidImage
	}

	// Fit keeps the aspect ratio, so only the longest edge hits the box.
	thumb := imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Lanczos)

	// Keep the uploaded format where the filename reveals one.
	format, err := imaging.FormatFromFilename(req.Filename)
	if err != nil {
		format = imaging.JPEG
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	ext := strings.ToLower(format.String())
	key := fmt.Sprintf("thumbnails/%s/%s.%s", principal.ID, uuid.New(), ext)
	url, err := s.blobStore.Put(ctx, key, buf.Bytes(), "image/"+ext)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to store thumbnail")
		return nil, err
	}

	if err := s.userRepo.UpdateThumbnail(ctx, principal.ID, url); err != nil {
		return nil, err
	}

	// Best-effort cleanup of the replaced image. The stock asset is shared
	// and never deleted.
	if previous.HasCustomThumbnail() {
		if key := thumbnailKey(previous.Thumbnail); key != "" {
			if err := s.blobStore.Delete(ctx, key); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete previous thumbnail")
			}
		}
	}

	principal.Thumbnail = url

	s.logger.Info().Str("user_id", principal.ID.String()).Str("url", url).Msg("Thumbnail updated")
	return buildUserView(principal), nil
}

// thumbnailKey recovers the storage key from a thumbnail URL. Both storage
// backends build URLs that end with the key.
func thumbnailKey(url string) string {
	if i := strings.Index(url, "thumbnails/"); i >= 0 {
		return url[i:]
	}
	return ""
}

// Conversations returns one page of the principal's conversations, most
// recently active first
func (s *ChatService) Conversations(ctx context.Context, principal *shared.User, page int) (*inbound.ConversationPage, error) {
	if page < 1 {
		page = 1
	}

	conns, err := s.chatRepo.ListConversations(ctx, principal.ID, s.convPageSize+1, (page-1)*s.convPageSize)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", principal.ID.String()).Msg("Failed to list conversations")
		return nil, err
	}

	conns, nextPage := trimPage(conns, page, s.convPageSize)

	friendIDs := make([]uuid.UUID, 0, len(conns))
	for _, c := range conns {
		friendIDs = append(friendIDs, c.CounterpartOf(principal.ID))
	}

	friends, err := s.userRepo.GetByIDs(ctx, friendIDs)
	if err != nil {
		return nil, err
	}

	views := make([]*inbound.ConversationView, 0, len(conns))
	for _, c := range conns {
		views = append(views, s.conversationView(c, friends[c.CounterpartOf(principal.ID)]))
	}

	return &inbound.ConversationPage{
		Conversations: views,
		NextPage:      nextPage,
		Loaded:        page != 1,
	}, nil
}

func (s *ChatService) conversationView(c *chat.Connection, friend *shared.User) *inbound.ConversationView {
	lastUpdated := c.LastMessageAt
	if lastUpdated.IsZero() {
		lastUpdated = c.Updated
	}
	return &inbound.ConversationView{
		ConnectionID:       c.ID,
		Friend:             buildUserView(friend),
		LastMessageContent: c.LastMessageContent,
		LastUpdated:        lastUpdated,
	}
}

// SendMessage persists a message and delivers it to both parties' personal
// groups, each rendered relative to its recipient
func (s *ChatService) SendMessage(ctx context.Context, principal *shared.User, req inbound.SendMessageRequest) error {
	if strings.TrimSpace(req.Content) == "" {
		return shared.ErrEmptyMessage
	}

	conn, err := s.chatRepo.GetConnection(ctx, req.ConnectionID)
	if err != nil {
		return err
	}

	if !conn.Involves(principal.ID) {
		return shared.ErrNotConnectionParty
	}

	msg := &chat.Message{
		ConnectionID: conn.ID,
		AuthorID:     principal.ID,
		Content:      req.Content,
		AuctionID:    req.AuctionID,
		Created:      time.Now(),
	}

	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		s.logger.Error().Err(err).Int64("connection_id", conn.ID).Msg("Failed to persist message")
		return err
	}

	if err := s.deliverMessage(ctx, "message_send", conn, msg, principal); err != nil {
		return err
	}

	s.logger.Info().
		Int64("message_id", msg.ID).
		Int64("connection_id", conn.ID).
		Str("author_id", principal.ID.String()).
		Msg("Message delivered")
	return nil
}

// StartConnection opens a connection between the principal and a receiver
// with a first message, then announces it to both parties
func (s *ChatService) StartConnection(ctx context.Context, principal *shared.User, req inbound.StartConnectionRequest) error {
	if req.ReceiverID == principal.ID {
		return shared.ErrSelfConnection
	}
	if strings.TrimSpace(req.Content) == "" {
		return shared.ErrEmptyMessage
	}

	if _, err := s.userRepo.GetByID(ctx, req.ReceiverID); err != nil {
		return err
	}

	if _, err := s.chatRepo.ConnectionBetween(ctx, principal.ID, req.ReceiverID); err == nil {
		return shared.ErrConnectionExists
	} else if err != shared.ErrConnectionNotFound {
		return err
	}

	now := time.Now()
	conn := &chat.Connection{
		SenderID:   principal.ID,
		ReceiverID: req.ReceiverID,
		Created:    now,
		Updated:    now,
	}
	first := &chat.Message{
		AuthorID: principal.ID,
		Content:  req.Content,
		Created:  now,
	}

	if err := s.chatRepo.CreateConnection(ctx, conn, first); err != nil {
		s.logger.Error().Err(err).Str("sender_id", principal.ID.String()).Msg("Failed to create connection")
		return err
	}

	if err := s.deliverMessage(ctx, "new_connection", conn, first, principal); err != nil {
		return err
	}

	s.logger.Info().
		Int64("connection_id", conn.ID).
		Str("sender_id", principal.ID.String()).
		Str("receiver_id", req.ReceiverID.String()).
		Msg("Connection started")
	return nil
}

// deliverMessage publishes a per-recipient rendering of the message to both
// parties' personal groups
func (s *ChatService) deliverMessage(ctx context.Context, source string, conn *chat.Connection, msg *chat.Message, author *shared.User) error {
	counterpart, err := s.userRepo.GetByID(ctx, conn.CounterpartOf(author.ID))
	if err != nil {
		return err
	}

	parties := []*shared.User{author, counterpart}
	for i, recipient := range parties {
		friend := parties[1-i]

		view, err := s.messageView(ctx, msg, recipient.ID)
		if err != nil {
			return err
		}

		s.broadcaster.Publish(ctx, recipient.Username, outbound.Event{
			Source: source,
			Data: &inbound.MessageDelivery{
				Message: view,
				Friend:  buildUserView(friend),
			},
		})
	}

	return nil
}

func (s *ChatService) messageView(ctx context.Context, msg *chat.Message, viewer uuid.UUID) (*inbound.MessageView, error) {
	view := &inbound.MessageView{
		ID:      msg.ID,
		IsMe:    msg.AuthorID == viewer,
		Content: msg.Content,
		Created: msg.Created,
		Read:    msg.Read,
	}

	// A shared auction rides along as a full listing view.
	if msg.AuctionID != nil {
		a, err := s.views.auctionRepo.GetByID(ctx, *msg.AuctionID)
		if err == nil {
			auctionView, err := s.views.auctionView(ctx, a, viewer)
			if err != nil {
				return nil, err
			}
			view.Auction = auctionView
		} else if err != shared.ErrAuctionNotFound {
			return nil, err
		}
	}

	return view, nil
}

// FetchMessages returns one page of a connection's messages, newest first,
// plus the counterpart's profile
func (s *ChatService) FetchMessages(ctx context.Context, principal *shared.User, connectionID int64, page int) (*inbound.MessagePage, error) {
	if page < 1 {
		page = 1
	}

	conn, err := s.chatRepo.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if !conn.Involves(principal.ID) {
		return nil, shared.ErrNotConnectionParty
	}

	messages, err := s.chatRepo.ListMessages(ctx, connectionID, s.msgPageSize+1, (page-1)*s.msgPageSize)
	if err != nil {
		s.logger.Error().Err(err).Int64("connection_id", connectionID).Msg("Failed to list messages")
		return nil, err
	}

	messages, nextPage := trimPage(messages, page, s.msgPageSize)

	views := make([]*inbound.MessageView, 0, len(messages))
	for _, m := range messages {
		view, err := s.messageView(ctx, m, principal.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	friend, err := s.userRepo.GetByID(ctx, conn.CounterpartOf(principal.ID))
	if err != nil {
		return nil, err
	}

	return &inbound.MessagePage{
		ConnectionID: connectionID,
		Messages:     views,
		Friend:       buildUserView(friend),
		NextPage:     nextPage,
		Loaded:       page != 1,
	}, nil
}

// MarkRead flags the counterpart's messages as read and acks the mark to
// the principal's own sessions
func (s *ChatService) MarkRead(ctx context.Context, principal *shared.User, connectionID int64) error {
	conn, err := s.chatRepo.GetConnection(ctx, connectionID)
	if err != nil {
		return err
	}

	if !conn.Involves(principal.ID) {
		return shared.ErrNotConnectionParty
	}

	updated, err := s.chatRepo.MarkRead(ctx, connectionID, principal.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("connection_id", connectionID).Msg("Failed to mark messages read")
		return err
	}

	s.broadcaster.Publish(ctx, principal.Username, outbound.Event{
		Source: "mark_read_messages",
		Data: map[string]interface{}{
			"connectionId": connectionID,
		},
	})

	s.logger.Info().
		Int64("connection_id", connectionID).
		Int64("updated", updated).
		Str("reader_id", principal.ID.String()).
		Msg("Messages marked read")
	return nil
}

// Typing forwards a typing indicator to the recipient's personal group.
// Nothing is persisted.
func (s *ChatService) Typing(ctx context.Context, principal *shared.User, req inbound.TypingRequest) error {
	conn, err := s.chatRepo.GetConnection(ctx, req.ConnectionID)
	if err != nil {
		return err
	}

	if !conn.Involves(principal.ID) {
		return shared.ErrNotConnectionParty
	}

	s.broadcaster.Publish(ctx, req.Recipient, outbound.Event{
		Source: "typingIndicator",
		Data: map[string]interface{}{
			"connectionId": req.ConnectionID,
			"username":     principal.Username,
		},
	})

	return nil
}

// CheckConnection answers the REST bootstrap: whether the viewer already
// shares a connection with the seller, and if so its latest messages
func (s *ChatService) CheckConnection(ctx context.Context, principal *shared.User, sellerID uuid.UUID) (*inbound.ConnectionCheck, error) {
	conn, err := s.chatRepo.ConnectionBetween(ctx, principal.ID, sellerID)
	if err == shared.ErrConnectionNotFound {
		return &inbound.ConnectionCheck{IsConnected: false}, nil
	}
	if err != nil {
		return nil, err
	}

	friend, err := s.userRepo.GetByID(ctx, conn.CounterpartOf(principal.ID))
	if err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.ListMessages(ctx, conn.ID, s.msgPageSize, 0)
	if err != nil {
		return nil, err
	}

	views := make([]*inbound.MessageView, 0, len(messages))
	for _, m := range messages {
		view, err := s.messageView(ctx, m, principal.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	return &inbound.ConnectionCheck{
		IsConnected: true,
		Connection:  s.conversationView(conn, friend),
		Messages:    views,
	}, nil
}
