package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"solden-marketplace-service/internal/domain/auction"
	"solden-marketplace-service/internal/domain/bid"
	"solden-marketplace-service/internal/domain/chat"
	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/google/uuid"
)

// In-memory repository fakes. They mirror the persistence semantics the SQL
// adapters implement so service tests exercise real flows.

type fakeAuctionRepo struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*auction.Auction
	images   map[uuid.UUID][]*auction.Image
	watchers map[uuid.UUID][]uuid.UUID
	bids     *fakeBidRepo
}

func newFakeAuctionRepo(bids *fakeBidRepo) *fakeAuctionRepo {
	return &fakeAuctionRepo{
		auctions: make(map[uuid.UUID]*auction.Auction),
		images:   make(map[uuid.UUID][]*auction.Image),
		watchers: make(map[uuid.UUID][]uuid.UUID),
		bids:     bids,
	}
}

func (r *fakeAuctionRepo) CreateWithImages(ctx context.Context, a *auction.Auction, images []*auction.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *a
	r.auctions[a.ID] = &copied
	r.images[a.ID] = images
	return nil
}

func (r *fakeAuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAuctionRepo) List(ctx context.Context, filter outbound.AuctionFilter, limit, offset int) ([]*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*auction.Auction
	for _, a := range r.auctions {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.CategoryID != nil && (a.CategoryID == nil || *a.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.ItemCondition != "" && a.ItemCondition != filter.ItemCondition {
			continue
		}
		if filter.ExcludeSeller != nil && a.SellerID == *filter.ExcludeSeller {
			continue
		}
		copied := *a
		matched = append(matched, &copied)
	}

	switch filter.Sort {
	case outbound.SortPriceAsc:
		sort.Slice(matched, func(i, j int) bool { return matched[i].CurrentPrice < matched[j].CurrentPrice })
	case outbound.SortPriceDesc:
		sort.Slice(matched, func(i, j int) bool { return matched[i].CurrentPrice > matched[j].CurrentPrice })
	case outbound.SortOldest:
		sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	default:
		sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	}

	return slicePage(matched, limit, offset), nil
}

func slicePage[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (r *fakeAuctionRepo) Search(ctx context.Context, query string, excludeSeller uuid.UUID) ([]*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*auction.Auction
	for _, a := range r.auctions {
		if a.SellerID == excludeSeller || a.Status != auction.StatusOngoing {
			continue
		}
		if containsFold(a.Title, query) {
			copied := *a
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return matched, nil
}

func (r *fakeAuctionRepo) ListWatchedBy(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*auction.Auction
	for auctionID, users := range r.watchers {
		for _, id := range users {
			if id == userID {
				copied := *r.auctions[auctionID]
				matched = append(matched, &copied)
				break
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return slicePage(matched, limit, offset), nil
}

func (r *fakeAuctionRepo) ListBidOnBy(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*auction.Auction
	for _, b := range r.bids.all() {
		if b.BidderID == userID {
			if a, ok := r.auctions[b.AuctionID]; ok {
				copied := *a
				matched = append(matched, &copied)
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return slicePage(matched, limit, offset), nil
}

func (r *fakeAuctionRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*auction.Auction
	for _, a := range r.auctions {
		if a.SellerID == sellerID {
			copied := *a
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return slicePage(matched, limit, offset), nil
}

func (r *fakeAuctionRepo) ToggleWatcher(ctx context.Context, auctionID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.watchers[auctionID]
	for i, id := range users {
		if id == userID {
			r.watchers[auctionID] = append(users[:i], users[i+1:]...)
			return false, nil
		}
	}
	r.watchers[auctionID] = append(users, userID)
	return true, nil
}

func (r *fakeAuctionRepo) Watchers(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.watchers[auctionID]...), nil
}

func (r *fakeAuctionRepo) ImagesByAuction(ctx context.Context, auctionID uuid.UUID) ([]*auction.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.images[auctionID], nil
}

func (r *fakeAuctionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[id]; !ok {
		return shared.ErrAuctionNotFound
	}
	delete(r.auctions, id)
	delete(r.images, id)
	delete(r.watchers, id)
	return nil
}

func (r *fakeAuctionRepo) Close(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	if a.Status != auction.StatusOngoing {
		copied := *a
		return &copied, nil
	}

	a.Status = auction.StatusEnded
	a.UpdatedAt = time.Now()

	if highest := r.bids.highestOf(id); highest != nil {
		winner := highest.BidderID
		a.WinnerID = &winner
		r.bids.markWinner(highest.ID)
	}

	copied := *a
	return &copied, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

type fakeBidRepo struct {
	mu       sync.Mutex
	bids     map[uuid.UUID]*bid.Bid
	auctions *fakeAuctionRepo
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{bids: make(map[uuid.UUID]*bid.Bid)}
}

func (r *fakeBidRepo) all() []*bid.Bid {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bid.Bid
	for _, b := range r.bids {
		copied := *b
		out = append(out, &copied)
	}
	return out
}

func (r *fakeBidRepo) highestOf(auctionID uuid.UUID) *bid.Bid {
	var highest *bid.Bid
	for _, b := range r.bids {
		if b.AuctionID != auctionID {
			continue
		}
		if highest == nil || b.Amount > highest.Amount ||
			(b.Amount == highest.Amount && b.PlacedAt.Before(highest.PlacedAt)) {
			highest = b
		}
	}
	return highest
}

func (r *fakeBidRepo) markWinner(id uuid.UUID) {
	if b, ok := r.bids[id]; ok {
		b.IsWinner = true
	}
}

func (r *fakeBidRepo) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, baseline float64) (*bid.Bid, error) {
	r.auctions.mu.Lock()
	a, ok := r.auctions.auctions[auctionID]
	if !ok {
		r.auctions.mu.Unlock()
		return nil, shared.ErrAuctionNotFound
	}

	now := time.Now()
	switch {
	case a.SellerID == bidderID:
		r.auctions.mu.Unlock()
		return nil, shared.ErrSellerCannotBid
	case a.Status != auction.StatusOngoing:
		r.auctions.mu.Unlock()
		return nil, shared.ErrAuctionNotAcceptingBids
	case now.Before(a.StartTime):
		r.auctions.mu.Unlock()
		return nil, shared.ErrAuctionNotStarted
	case !now.Before(a.EndTime):
		r.auctions.mu.Unlock()
		return nil, shared.ErrAuctionEnded
	case a.CurrentPrice != baseline:
		r.auctions.mu.Unlock()
		return nil, shared.ErrAuctionPriceChanged
	}

	amount := a.CurrentPrice + a.BidIncrement
	a.CurrentPrice = amount
	a.UpdatedAt = now
	r.auctions.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// One bid row per (auction, bidder): a re-bid overwrites.
	for _, b := range r.bids {
		if b.AuctionID == auctionID && b.BidderID == bidderID {
			b.Amount = amount
			b.PlacedAt = now
			copied := *b
			return &copied, nil
		}
	}

	newBid := &bid.Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  now,
	}
	r.bids[newBid.ID] = newBid
	copied := *newBid
	return &copied, nil
}

func (r *fakeBidRepo) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*bid.Bid
	for _, b := range r.bids {
		if b.AuctionID == auctionID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].PlacedAt.Before(out[j].PlacedAt)
	})
	return out, nil
}

func (r *fakeBidRepo) HighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	highest := r.highestOf(auctionID)
	if highest == nil {
		return nil, shared.ErrNoBidsFound
	}
	copied := *highest
	return &copied, nil
}

type fakeChatRepo struct {
	mu       sync.Mutex
	nextID   int64
	conns    map[int64]*chat.Connection
	messages map[int64][]*chat.Message
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		nextID:   1,
		conns:    make(map[int64]*chat.Connection),
		messages: make(map[int64][]*chat.Message),
	}
}

func (r *fakeChatRepo) GetConnection(ctx context.Context, id int64) (*chat.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return nil, shared.ErrConnectionNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeChatRepo) ConnectionBetween(ctx context.Context, a, b uuid.UUID) (*chat.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns {
		if (c.SenderID == a && c.ReceiverID == b) || (c.SenderID == b && c.ReceiverID == a) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, shared.ErrConnectionNotFound
}

func (r *fakeChatRepo) CreateConnection(ctx context.Context, conn *chat.Connection, first *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn.ID = r.nextID
	r.nextID++
	copied := *conn
	r.conns[conn.ID] = &copied

	if first != nil {
		first.ConnectionID = conn.ID
		first.ID = r.nextID
		r.nextID++
		msgCopy := *first
		r.messages[conn.ID] = append(r.messages[conn.ID], &msgCopy)
	}
	return nil
}

func (r *fakeChatRepo) CreateMessage(ctx context.Context, msg *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[msg.ConnectionID]
	if !ok {
		return shared.ErrConnectionNotFound
	}

	msg.ID = r.nextID
	r.nextID++
	copied := *msg
	r.messages[msg.ConnectionID] = append(r.messages[msg.ConnectionID], &copied)
	c.Updated = time.Now()
	return nil
}

func (r *fakeChatRepo) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*chat.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*chat.Connection
	for _, c := range r.conns {
		if !c.Involves(userID) {
			continue
		}
		copied := *c
		if msgs := r.messages[c.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			copied.LastMessageContent = last.Content
			copied.LastMessageAt = last.Created
		} else {
			copied.LastMessageAt = c.Created
		}
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return slicePage(out, limit, offset), nil
}

func (r *fakeChatRepo) ListMessages(ctx context.Context, connectionID int64, limit, offset int) ([]*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.messages[connectionID]
	out := make([]*chat.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		copied := *msgs[i]
		out = append(out, &copied)
	}
	return slicePage(out, limit, offset), nil
}

func (r *fakeChatRepo) MarkRead(ctx context.Context, connectionID int64, readerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, m := range r.messages[connectionID] {
		if m.AuthorID != readerID && !m.Read {
			m.Read = true
			updated++
		}
	}
	return updated, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*shared.User
}

func newFakeUserRepo(users ...*shared.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*shared.User)}
	for _, u := range users {
		copied := *u
		r.users[u.ID] = &copied
	}
	return r
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*shared.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*shared.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]*shared.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			copied := *u
			out[id] = &copied
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *shared.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) UpdateThumbnail(ctx context.Context, userID uuid.UUID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return shared.ErrUserNotFound
	}
	u.Thumbnail = url
	return nil
}

type fakeCategoryRepo struct {
	categories map[int64]*auction.Category
}

func newFakeCategoryRepo(categories ...*auction.Category) *fakeCategoryRepo {
	r := &fakeCategoryRepo{categories: make(map[int64]*auction.Category)}
	for _, c := range categories {
		r.categories[c.ID] = c
	}
	return r
}

func (r *fakeCategoryRepo) List(ctx context.Context) ([]*auction.Category, error) {
	out := make([]*auction.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeCategoryRepo) GetByID(ctx context.Context, id int64) (*auction.Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, shared.ErrCategoryNotFound
	}
	return c, nil
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return s.URLFor(key), nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *fakeBlobStore) URLFor(key string) string {
	return "http://blobs.test/" + key
}

type publishedEvent struct {
	Group string
	Event outbound.Event
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{}
}

func (b *fakeBroadcaster) JoinGroup(ctx context.Context, group, sessionID string, events chan outbound.Event) error {
	return nil
}

func (b *fakeBroadcaster) LeaveGroup(ctx context.Context, group, sessionID string) error {
	return nil
}

func (b *fakeBroadcaster) LeaveAll(ctx context.Context, sessionID string) {}

func (b *fakeBroadcaster) Publish(ctx context.Context, group string, event outbound.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Group: group, Event: event})
}

func (b *fakeBroadcaster) published() []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedEvent(nil), b.events...)
}

func (b *fakeBroadcaster) publishedTo(group string) []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishedEvent
	for _, e := range b.events {
		if e.Group == group {
			out = append(out, e)
		}
	}
	return out
}

type scheduledClosing struct {
	AuctionID uuid.UUID
	EndTime   time.Time
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []scheduledClosing
	cancelled []uuid.UUID
}

func (s *fakeScheduler) ScheduleAuction(auctionID uuid.UUID, endTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, scheduledClosing{AuctionID: auctionID, EndTime: endTime})
	return nil
}

func (s *fakeScheduler) CancelAuction(auctionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, auctionID)
	return nil
}
