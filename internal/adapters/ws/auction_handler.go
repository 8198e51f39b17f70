package ws

import (
	"context"
	"fmt"

	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/inbound"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/google/uuid"
)

func unknownSource(source string) error {
	return fmt.Errorf("%w: %s", shared.ErrUnsupportedSource, source)
}

// newAuctionHandlers builds the dispatch table for the auction channel.
// Mutations broadcast through the service layer; query results are published
// to the caller's personal group so every session of that user receives them.
func newAuctionHandlers(service inbound.AuctionService, broadcaster outbound.Broadcaster) dispatchTable {
	h := &auctionHandlers{service: service, broadcaster: broadcaster}

	return dispatchTable{
		"search":                      h.search,
		"FetchAuctionsListByCategory": h.listByCategory,
		"create_auction":              h.create,
		"place_bid":                   h.placeBid,
		"watch_auction":               h.watch,
		"delete_auction":              h.delete,
		"likesAuctions":               h.likes,
		"bidsAuctions":                h.bids,
		"salesAuctions":               h.sales,

		// Accepted for protocol compatibility, not implemented yet.
		"edit_auction":   h.noop,
		"close_auction":  h.noop,
		"reopen_auction": h.noop,
		"report_user":    h.noop,
	}
}

type auctionHandlers struct {
	service     inbound.AuctionService
	broadcaster outbound.Broadcaster
}

// publishToSelf delivers a query result to the principal's personal group
func (h *auctionHandlers) publishToSelf(ctx context.Context, client *WsClient, source string, data interface{}) error {
	h.broadcaster.Publish(ctx, client.user.Username, outbound.Event{Source: source, Data: data})
	return nil
}

func (h *auctionHandlers) search(ctx context.Context, client *WsClient, data []byte) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	views, err := h.service.Search(ctx, client.user, req.Query)
	if err != nil {
		return err
	}

	return h.publishToSelf(ctx, client, "search_results", map[string]interface{}{"auctions": views})
}

func (h *auctionHandlers) listByCategory(ctx context.Context, client *WsClient, data []byte) error {
	var req inbound.ListAuctionsRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	page, err := h.service.ListByCategory(ctx, client.user, req)
	if err != nil {
		return err
	}

	return h.publishToSelf(ctx, client, "auctionsList", page)
}

func (h *auctionHandlers) create(ctx context.Context, client *WsClient, data []byte) error {
	var req inbound.CreateAuctionRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	// The service broadcasts the new listing to the auction room itself.
	_, err := h.service.Create(ctx, client.user, req)
	return err
}

func (h *auctionHandlers) placeBid(ctx context.Context, client *WsClient, data []byte) error {
	var req inbound.PlaceBidRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	_, err := h.service.PlaceBid(ctx, client.user, req)
	return err
}

func (h *auctionHandlers) watch(ctx context.Context, client *WsClient, data []byte) error {
	var req struct {
		AuctionID uuid.UUID `json:"auctionId"`
	}
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	_, err := h.service.ToggleWatch(ctx, client.user, req.AuctionID)
	return err
}

func (h *auctionHandlers) delete(ctx context.Context, client *WsClient, data []byte) error {
	var req struct {
		AuctionID uuid.UUID `json:"auctionId"`
	}
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	return h.service.Delete(ctx, client.user, req.AuctionID)
}

type pageRequest struct {
	Page int `json:"page"`
}

func (h *auctionHandlers) likes(ctx context.Context, client *WsClient, data []byte) error {
	var req pageRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	page, err := h.service.ListWatched(ctx, client.user, req.Page)
	if err != nil {
		return err
	}

	return h.publishToSelf(ctx, client, "likesAuctions", page)
}

func (h *auctionHandlers) bids(ctx context.Context, client *WsClient, data []byte) error {
	var req pageRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	page, err := h.service.ListBidOn(ctx, client.user, req.Page)
	if err != nil {
		return err
	}

	return h.publishToSelf(ctx, client, "bidsAuctions", page)
}

func (h *auctionHandlers) sales(ctx context.Context, client *WsClient, data []byte) error {
	var req pageRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	page, err := h.service.ListSales(ctx, client.user, req.Page)
	if err != nil {
		return err
	}

	return h.publishToSelf(ctx, client, "salesAuctions", page)
}

func (h *auctionHandlers) noop(ctx context.Context, client *WsClient, data []byte) error {
	client.logger.Debug().Msg("Ignoring unimplemented operation")
	return nil
}
