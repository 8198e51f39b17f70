package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solden-marketplace-service/internal/domain/shared"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// taskBacklog bounds the frames queued per connection before Submit blocks.
const taskBacklog = 64

// WsClient is one authenticated WebSocket session. A single-worker pool
// processes inbound frames so operations from one connection apply in the
// order they arrived.
type WsClient struct {
	id         string
	user       *shared.User
	channel    string
	conn       *websocket.Conn
	sendChan   chan interface{}
	ctx        context.Context
	cancel     context.CancelFunc
	dispatch   func(ctx context.Context, client *WsClient, frame *ClientFrame) error
	workerPool *pond.WorkerPool
	stopped    bool
	mu         sync.Mutex
	logger     zerolog.Logger
}

type WsClientParams struct {
	User       *shared.User
	Channel    string
	Conn       *websocket.Conn
	SendBuffer int
	Dispatch   func(ctx context.Context, client *WsClient, frame *ClientFrame) error
	Logger     zerolog.Logger
}

// NewClient creates a new WebSocket client session
func NewClient(params WsClientParams) *WsClient {
	ctx, cancel := context.WithCancel(context.Background())

	// One worker: frames from this connection never run concurrently.
	pool := pond.New(1, taskBacklog, pond.Context(ctx))

	id := uuid.New().String()
	return &WsClient{
		id:         id,
		user:       params.User,
		channel:    params.Channel,
		conn:       params.Conn,
		sendChan:   make(chan interface{}, params.SendBuffer),
		ctx:        ctx,
		cancel:     cancel,
		dispatch:   params.Dispatch,
		workerPool: pool,
		logger: params.Logger.With().
			Str("session_id", id).
			Str("user_id", params.User.ID.String()).
			Str("channel", params.Channel).
			Logger(),
	}
}

func (c *WsClient) Start() {
	go c.messageSender()
	go c.messageReceiver()
}

func (client *WsClient) Stop() {
	client.mu.Lock()
	defer client.mu.Unlock()

	// Prevent double closing
	if client.stopped {
		return
	}
	client.stopped = true

	client.cancel()
	client.conn.Close()

	if client.workerPool != nil {
		client.workerPool.Stop()
	}
}

// Send queues an outbound frame for the writer goroutine
func (client *WsClient) Send(msg interface{}) error {
	client.mu.Lock()
	if client.stopped {
		client.mu.Unlock()
		return fmt.Errorf("client is stopped")
	}
	client.mu.Unlock()

	select {
	case client.sendChan <- msg:
		return nil
	default:
		select {
		case client.sendChan <- msg:
			return nil
		case <-time.After(100 * time.Millisecond):
			return fmt.Errorf("client send channel is full")
		}
	}
}

func (client *WsClient) messageSender() {
	for {
		select {
		case msg := <-client.sendChan:
			if err := client.conn.WriteJSON(msg); err != nil {
				client.logger.Error().Err(err).Msg("Failed to send message to client")
				return
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func (client *WsClient) messageReceiver() {
	for {
		select {
		case <-client.ctx.Done():
			return
		default:
			_, message, err := client.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					client.logger.Error().Err(err).Msg("WebSocket read error for client")
				} else {
					client.logger.Info().Str("error", err.Error()).Msg("WebSocket connection closed for client")
				}
				// Cancel context to notify the gateway about disconnection
				client.cancel()
				return
			}

			client.workerPool.Submit(func() {
				if err := client.handleMessage(message); err != nil {
					client.logger.Warn().Err(err).Msg("Frame handling failed")
					frameErrors.WithLabelValues(client.channel).Inc()
					if sendErr := client.Send(NewErrorFrame(err)); sendErr != nil {
						client.logger.Error().Err(sendErr).Msg("Failed to send error frame")
					}
				}
			})
		}
	}
}

func (client *WsClient) handleMessage(data []byte) error {
	frame, err := ParseClientFrame(data)
	if err != nil {
		return err
	}

	framesReceived.WithLabelValues(client.channel, frame.Source).Inc()
	return client.dispatch(client.ctx, client, frame)
}
