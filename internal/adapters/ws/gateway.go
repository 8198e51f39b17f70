package ws

import (
	"context"
	"net/http"
	"sync"

	"solden-marketplace-service/internal/auth"
	"solden-marketplace-service/internal/config"
	"solden-marketplace-service/internal/ports/inbound"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Channel names, used for routing and metrics labels.
const (
	ChannelAuctions = "auctions"
	ChannelChat     = "chat"
)

// Gateway upgrades HTTP requests into authenticated WebSocket sessions and
// routes their frames to the auction or chat dispatch table. Every session
// joins its user's personal broadcast group; auction sessions additionally
// join the shared auction room.
type Gateway struct {
	clients         map[string]*WsClient // sessionID -> client
	clientsMu       sync.RWMutex
	upgrader        websocket.Upgrader
	gate            *auth.Gate
	broadcaster     outbound.Broadcaster
	auctionHandlers dispatchTable
	chatHandlers    dispatchTable
	sendBuffer      int
	logger          zerolog.Logger
}

type GatewayParams struct {
	Config         *config.Config
	Gate           *auth.Gate
	AuctionService inbound.AuctionService
	ChatService    inbound.ChatService
	Broadcaster    outbound.Broadcaster
	Logger         zerolog.Logger
}

// NewGateway creates a new WebSocket gateway
func NewGateway(params GatewayParams) *Gateway {
	g := &Gateway{
		clients: make(map[string]*WsClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  params.Config.WebSocket.ReadBufferSize,
			WriteBufferSize: params.Config.WebSocket.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		gate:        params.Gate,
		broadcaster: params.Broadcaster,
		sendBuffer:  config.WSSendBuffer,
		logger:      params.Logger.With().Str("component", "ws_gateway").Logger(),
	}

	g.auctionHandlers = newAuctionHandlers(params.AuctionService, params.Broadcaster)
	g.chatHandlers = newChatHandlers(params.ChatService, params.Broadcaster)

	return g
}

// HandleAuctions upgrades a connection onto the auction channel
func (g *Gateway) HandleAuctions(w http.ResponseWriter, r *http.Request) {
	g.accept(w, r, ChannelAuctions, g.auctionHandlers)
}

// HandleChat upgrades a connection onto the chat channel
func (g *Gateway) HandleChat(w http.ResponseWriter, r *http.Request) {
	g.accept(w, r, ChannelChat, g.chatHandlers)
}

func (g *Gateway) accept(w http.ResponseWriter, r *http.Request, channel string, handlers dispatchTable) {
	// The browser WebSocket API cannot set headers, so the token rides in
	// the query string.
	user, err := g.gate.Authenticate(r.Context(), r.URL.Query().Get("tokens"))
	if err != nil {
		authRejections.Inc()
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		User:       user,
		Channel:    channel,
		Conn:       conn,
		SendBuffer: g.sendBuffer,
		Dispatch:   handlers.dispatch,
		Logger:     g.logger,
	})

	g.registerClient(client)
	connectionsActive.WithLabelValues(channel).Inc()

	events := make(chan outbound.Event, g.sendBuffer)
	if err := g.joinGroups(r.Context(), client, events); err != nil {
		g.logger.Error().Err(err).Str("session_id", client.id).Msg("Failed to join broadcast groups")
		conn.Close()
		g.unregisterClient(client)
		return
	}

	client.Start()
	go g.forwardEvents(client, events)

	go func() {
		<-client.ctx.Done()
		g.unregisterClient(client)
	}()

	g.logger.Info().
		Str("session_id", client.id).
		Str("user_id", user.ID.String()).
		Str("channel", channel).
		Msg("WebSocket client connected")
}

// joinGroups subscribes the session to its broadcast groups: the user's
// personal group always, the auction room for auction sessions.
func (g *Gateway) joinGroups(ctx context.Context, client *WsClient, events chan outbound.Event) error {
	if err := g.broadcaster.JoinGroup(ctx, client.user.Username, client.id, events); err != nil {
		return err
	}

	if client.channel == ChannelAuctions {
		if err := g.broadcaster.JoinGroup(ctx, outbound.RoomAuctions, client.id, events); err != nil {
			return err
		}
	}

	return nil
}

// forwardEvents pumps broadcast events onto the session's send channel
func (g *Gateway) forwardEvents(client *WsClient, events chan outbound.Event) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := client.Send(frameFromEvent(event)); err != nil {
				g.logger.Warn().Err(err).Str("session_id", client.id).Msg("Failed to forward event to client")
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func (g *Gateway) registerClient(client *WsClient) {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()
	g.clients[client.id] = client
}

func (g *Gateway) unregisterClient(client *WsClient) {
	g.clientsMu.Lock()
	_, registered := g.clients[client.id]
	delete(g.clients, client.id)
	g.clientsMu.Unlock()

	if !registered {
		return
	}

	g.broadcaster.LeaveAll(context.Background(), client.id)
	client.Stop()

	connectionsActive.WithLabelValues(client.channel).Dec()
	g.logger.Info().
		Str("session_id", client.id).
		Str("user_id", client.user.ID.String()).
		Msg("WebSocket client disconnected")
}

// ConnectedClients returns the number of open sessions
func (g *Gateway) ConnectedClients() int {
	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()
	return len(g.clients)
}

// dispatchTable maps inbound source tags to their operation handlers
type dispatchTable map[string]func(ctx context.Context, client *WsClient, data []byte) error

func (t dispatchTable) dispatch(ctx context.Context, client *WsClient, frame *ClientFrame) error {
	handler, ok := t[frame.Source]
	if !ok {
		return unknownSource(frame.Source)
	}
	return handler(ctx, client, frame.Data)
}
