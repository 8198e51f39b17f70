package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"solden-marketplace-service/internal/ports/outbound"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBroadcaster implements the broadcaster interface using Redis pub/sub.
// Each session holds one pubsub connection subscribed to every group the
// session joined; publishing goes through Redis so fan-out reaches sessions
// on every instance.
type RedisBroadcaster struct {
	client          *redis.Client
	subscribers     map[string]chan outbound.Event // sessionID -> local channel
	pubsubs         map[string]*redis.PubSub       // sessionID -> pubsub instance
	sessionsToGroup map[string]map[string]bool     // sessionID -> group -> joined
	mu              sync.RWMutex
	ctx             context.Context
	cancel          context.CancelFunc
	logger          zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	broadcaster := &RedisBroadcaster{
		client:          params.RedisClient,
		subscribers:     make(map[string]chan outbound.Event),
		pubsubs:         make(map[string]*redis.PubSub),
		sessionsToGroup: make(map[string]map[string]bool),
		ctx:             ctx,
		cancel:          cancel,
		logger:          params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}

	return broadcaster
}

func channelName(group string) string {
	return fmt.Sprintf("group:%s", group)
}

// JoinGroup subscribes a session to a group's events
func (r *RedisBroadcaster) JoinGroup(ctx context.Context, group, sessionID string, events chan outbound.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessionsToGroup[sessionID] != nil && r.sessionsToGroup[sessionID][group] {
		r.logger.Info().
			Str("session_id", sessionID).
			Str("group", group).
			Msg("Session already joined group")
		return nil
	}

	// Store the event channel on the session's first join
	if r.subscribers[sessionID] == nil {
		r.subscribers[sessionID] = events
	}

	if r.sessionsToGroup[sessionID] == nil {
		r.sessionsToGroup[sessionID] = make(map[string]bool)
	}
	r.sessionsToGroup[sessionID][group] = true

	// Get or create the pubsub connection for this session
	var pubsub *redis.PubSub
	if existingPubsub, exists := r.pubsubs[sessionID]; exists {
		pubsub = existingPubsub
	} else {
		pubsub = r.client.Subscribe(ctx)
		r.pubsubs[sessionID] = pubsub

		// Forward Redis messages to the session's local channel
		go r.listenForRedisMessages(pubsub, sessionID, events)
	}

	if err := pubsub.Subscribe(ctx, channelName(group)); err != nil {
		r.logger.Error().Err(err).Str("session_id", sessionID).Str("group", group).Msg("Failed to subscribe to Redis channel")
		return err
	}

	r.logger.Info().
		Str("session_id", sessionID).
		Str("group", group).
		Msg("Session joined group via Redis")
	return nil
}

// LeaveGroup unsubscribes a session from a group
func (r *RedisBroadcaster) LeaveGroup(ctx context.Context, group, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionGroups, exists := r.sessionsToGroup[sessionID]
	if !exists {
		return nil
	}

	delete(sessionGroups, group)

	if len(sessionGroups) == 0 {
		r.dropSessionLocked(sessionID)
	} else if pubsub, exists := r.pubsubs[sessionID]; exists {
		if err := pubsub.Unsubscribe(ctx, channelName(group)); err != nil {
			r.logger.Error().Err(err).Str("session_id", sessionID).Str("group", group).Msg("Error unsubscribing from Redis channel")
		}
	}

	r.logger.Info().
		Str("session_id", sessionID).
		Str("group", group).
		Msg("Session left group")
	return nil
}

// LeaveAll drops every group membership of a session and closes its channel.
// Called on disconnect.
func (r *RedisBroadcaster) LeaveAll(ctx context.Context, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessionsToGroup[sessionID]; !exists {
		return
	}

	delete(r.sessionsToGroup, sessionID)
	r.dropSessionLocked(sessionID)

	r.logger.Info().Str("session_id", sessionID).Msg("Session left all groups")
}

// dropSessionLocked tears down a session's channel and pubsub connection.
// Caller holds the write lock.
func (r *RedisBroadcaster) dropSessionLocked(sessionID string) {
	delete(r.sessionsToGroup, sessionID)

	if events, exists := r.subscribers[sessionID]; exists {
		close(events)
		delete(r.subscribers, sessionID)
	}

	if pubsub, exists := r.pubsubs[sessionID]; exists {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("session_id", sessionID).Msg("Error closing Redis pubsub for session")
		}
		delete(r.pubsubs, sessionID)
	}
}

// Publish publishes an event to every session joined to the group via Redis.
// Delivery failures are logged, never surfaced to the publisher.
func (r *RedisBroadcaster) Publish(ctx context.Context, group string, event outbound.Event) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Str("group", group).Msg("Failed to marshal event")
		return
	}

	result := r.client.Publish(ctx, channelName(group), eventJSON)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Str("group", group).Msg("Failed to publish to Redis")
		return
	}

	r.logger.Info().
		Str("source", event.Source).
		Str("group", group).
		Int64("subscriber_count", result.Val()).
		Msg("Published event to group")
}

// listenForRedisMessages forwards Redis messages to the session's local channel
func (r *RedisBroadcaster) listenForRedisMessages(pubsub *redis.PubSub, sessionID string, localChan chan outbound.Event) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Str("session_id", sessionID).Msg("Redis message listener panic for session")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Info().Str("session_id", sessionID).Msg("Redis channel closed for session")
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to unmarshal Redis message for session")
				continue
			}

			select {
			case localChan <- event:
			default:
				r.logger.Warn().Str("session_id", sessionID).Msg("Local channel full for session, dropping event")
			}

		case <-r.ctx.Done():
			r.logger.Info().Str("session_id", sessionID).Msg("Redis broadcaster context cancelled for session")
			return
		}
	}
}

func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for sessionID, events := range r.subscribers {
		close(events)
		delete(r.subscribers, sessionID)
	}

	for sessionID, pubsub := range r.pubsubs {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("session_id", sessionID).Msg("Error closing Redis pubsub for session")
		}
		delete(r.pubsubs, sessionID)
	}

	return r.client.Close()
}

// IsJoined reports whether a session currently belongs to a group
func (r *RedisBroadcaster) IsJoined(group, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessionGroups, exists := r.sessionsToGroup[sessionID]
	if !exists {
		return false
	}

	return sessionGroups[group]
}
