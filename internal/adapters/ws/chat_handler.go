package ws

import (
	"context"

	"solden-marketplace-service/internal/ports/inbound"
	"solden-marketplace-service/internal/ports/outbound"
)

// newChatHandlers builds the dispatch table for the chat channel. Message
// deliveries fan out through the service layer; fetches come back on the
// caller's personal group.
func newChatHandlers(service inbound.ChatService, broadcaster outbound.Broadcaster) dispatchTable {
	h := &chatHandlers{service: service, broadcaster: broadcaster}

	return dispatchTable{
		"thumbnail":              h.thumbnail,
		"fetchConversationsList": h.conversations,
		"message_send":           h.sendMessage,
		"new_connection":         h.newConnection,
		"fetchChatMessages":      h.fetchMessages,
		"message_typing":         h.typing,
		"read_messages":          h.markRead,
	}
}

type chatHandlers struct {
	service     inbound.ChatService
	broadcaster outbound.Broadcaster
}

func (h *chatHandlers) publishToSelf(ctx context.Context, client *WsClient, source string, data interface{}) error {
	h.broadcaster.Publish(ctx, client.user.Username, outbound.Event{Source: source, Data: data})
	return nil
}

func (h *chatHandlers) thumbnail(ctx context.Context, client *WsClient, data []byte) error {
	var req inbound.ThumbnailRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	view, err := h.service.UpdateThumbnail(ctx, client.user, req)
	if err != nil {
		return err
	}

	return h.publishToSelf(ctx, client, "thumbnail", view)
}

func (h *chatHandlers) conversations(ctx context.Context, client *WsClient, data []byte) error {
	var req pageRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	page, err := h.service.Conversations(ctx, client.user, req.Page)
	if err != nil {
		return err
	}

	return h.publishToSelf(ctx, client, "conversationsList", page)
}

func (h *chatHandlers) sendMessage(ctx context.Context, client *WsClient, data []byte) error {
	var req inbound.SendMessageRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	// Delivery to both parties happens inside the service.
	return h.service.SendMessage(ctx, client.user, req)
}

func (h *chatHandlers) newConnection(ctx context.Context, client *WsClient, data []byte) error {
	var req inbound.StartConnectionRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	return h.service.StartConnection(ctx, client.user, req)
}

func (h *chatHandlers) fetchMessages(ctx context.Context, client *WsClient, data []byte) error {
	var req struct {
		ConnectionID int64 `json:"connectionId"`
		Page         int   `json:"page"`
	}
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	page, err := h.service.FetchMessages(ctx, client.user, req.ConnectionID, req.Page)
	if err != nil {
		return err
	}

	return h.publishToSelf(ctx, client, "fetchChatMessages", page)
}

func (h *chatHandlers) typing(ctx context.Context, client *WsClient, data []byte) error {
	var req inbound.TypingRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	return h.service.Typing(ctx, client.user, req)
}

func (h *chatHandlers) markRead(ctx context.Context, client *WsClient, data []byte) error {
	var req struct {
		ConnectionID int64 `json:"connectionId"`
	}
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	return h.service.MarkRead(ctx, client.user, req.ConnectionID)
}
