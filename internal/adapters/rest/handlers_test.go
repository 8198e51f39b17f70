package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solden-marketplace-service/internal/auth"
	"solden-marketplace-service/internal/domain/auction"
	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/inbound"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserRepo struct {
	user *shared.User
}

func (r *stubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, shared.ErrUserNotFound
}

func (r *stubUserRepo) GetByUsername(ctx context.Context, username string) (*shared.User, error) {
	return nil, shared.ErrUserNotFound
}

func (r *stubUserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*shared.User, error) {
	return map[uuid.UUID]*shared.User{}, nil
}

func (r *stubUserRepo) Create(ctx context.Context, user *shared.User) error { return nil }

func (r *stubUserRepo) UpdateThumbnail(ctx context.Context, userID uuid.UUID, url string) error {
	return nil
}

type stubCategoryRepo struct {
	categories []*auction.Category
}

func (r *stubCategoryRepo) List(ctx context.Context) ([]*auction.Category, error) {
	return r.categories, nil
}

func (r *stubCategoryRepo) GetByID(ctx context.Context, id int64) (*auction.Category, error) {
	return nil, shared.ErrCategoryNotFound
}

// stubChatService records the principal it was called with and returns canned
// results.
type stubChatService struct {
	lastPrincipal *shared.User
	fetchErr      error
}

func (s *stubChatService) UpdateThumbnail(ctx context.Context, principal *shared.User, req inbound.ThumbnailRequest) (*inbound.UserView, error) {
	return nil, nil
}

func (s *stubChatService) Conversations(ctx context.Context, principal *shared.User, page int) (*inbound.ConversationPage, error) {
	return nil, nil
}

func (s *stubChatService) SendMessage(ctx context.Context, principal *shared.User, req inbound.SendMessageRequest) error {
	return nil
}

func (s *stubChatService) StartConnection(ctx context.Context, principal *shared.User, req inbound.StartConnectionRequest) error {
	return nil
}

func (s *stubChatService) FetchMessages(ctx context.Context, principal *shared.User, connectionID int64, page int) (*inbound.MessagePage, error) {
	s.lastPrincipal = principal
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return &inbound.MessagePage{ConnectionID: connectionID}, nil
}

func (s *stubChatService) MarkRead(ctx context.Context, principal *shared.User, connectionID int64) error {
	return nil
}

func (s *stubChatService) Typing(ctx context.Context, principal *shared.User, req inbound.TypingRequest) error {
	return nil
}

func (s *stubChatService) CheckConnection(ctx context.Context, principal *shared.User, sellerID uuid.UUID) (*inbound.ConnectionCheck, error) {
	s.lastPrincipal = principal
	return &inbound.ConnectionCheck{IsConnected: false}, nil
}

type restFixture struct {
	router *chi.Mux
	gate   *auth.Gate
	chat   *stubChatService
	user   *shared.User
	token  string
}

func newRestFixture(t *testing.T) *restFixture {
	t.Helper()

	user := &shared.User{ID: uuid.New(), Username: "alice"}
	gate := auth.NewGate(auth.GateParams{
		Secret:   "test-secret",
		UserRepo: &stubUserRepo{user: user},
		Logger:   zerolog.Nop(),
	})

	token, err := gate.GenerateToken(user.ID, user.Username, time.Hour)
	require.NoError(t, err)

	chat := &stubChatService{}
	h := &handlers{
		gate:         gate,
		chatService:  chat,
		categoryRepo: &stubCategoryRepo{categories: []*auction.Category{{ID: 1, Name: "Electronics"}}},
		logger:       zerolog.Nop(),
	}

	r := chi.NewRouter()
	r.Get("/api/categories", h.listCategories)
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/api/chats/check/{sellerId}", h.checkConnection)
		r.Get("/api/chats/messages/{connectionId}", h.fetchMessages)
	})

	return &restFixture{router: r, gate: gate, chat: chat, user: user, token: token}
}

func TestRequireAuth(t *testing.T) {
	f := newRestFixture(t)
	url := "/api/chats/check/" + uuid.New().String()

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Authorization", "Bearer "+f.token)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, f.chat.lastPrincipal)
		assert.Equal(t, f.user.ID, f.chat.lastPrincipal.ID)
	})

	t.Run("query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, url+"?tokens="+f.token, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestListCategories(t *testing.T) {
	f := newRestFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"key":1,"value":"Electronics"}]`, rec.Body.String())
}

func TestCheckConnectionBadSellerID(t *testing.T) {
	f := newRestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/chats/check/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchMessages(t *testing.T) {
	t.Run("forwards the page", func(t *testing.T) {
		f := newRestFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/api/chats/messages/7?page=2", nil)
		req.Header.Set("Authorization", "Bearer "+f.token)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"connectionId":7`)
	})

	t.Run("maps missing connection to 404", func(t *testing.T) {
		f := newRestFixture(t)
		f.chat.fetchErr = shared.ErrConnectionNotFound

		req := httptest.NewRequest(http.MethodGet, "/api/chats/messages/7", nil)
		req.Header.Set("Authorization", "Bearer "+f.token)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
