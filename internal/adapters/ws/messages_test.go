package ws

import (
	"context"
	"errors"
	"testing"

	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/outbound"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientFrame(t *testing.T) {
	t.Run("valid frame", func(t *testing.T) {
		frame, err := ParseClientFrame([]byte(`{"source":"place_bid","data":{"auctionId":"x","amount":100}}`))
		require.NoError(t, err)
		assert.Equal(t, "place_bid", frame.Source)
		assert.JSONEq(t, `{"auctionId":"x","amount":100}`, string(frame.Data))
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := ParseClientFrame([]byte(`{not json`))
		assert.ErrorIs(t, err, shared.ErrInvalidMessageFormat)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := ParseClientFrame([]byte(`{"data":{}}`))
		assert.ErrorIs(t, err, shared.ErrInvalidMessageFormat)
	})
}

func TestNewErrorFrame(t *testing.T) {
	t.Run("domain errors pass through", func(t *testing.T) {
		frame := NewErrorFrame(shared.ErrAuctionPriceChanged)
		assert.Equal(t, "error", frame.Type)
		assert.Equal(t, shared.ErrAuctionPriceChanged.Error(), frame.Message)
	})

	t.Run("internal errors are masked", func(t *testing.T) {
		frame := NewErrorFrame(errors.New("pq: connection refused"))
		assert.Equal(t, "error", frame.Type)
		assert.Equal(t, "internal error", frame.Message)
	})

	t.Run("wrapped domain errors pass through", func(t *testing.T) {
		frame := NewErrorFrame(unknownSource("bogus"))
		assert.Contains(t, frame.Message, "bogus")
	})
}

func TestDispatchTableUnknownSource(t *testing.T) {
	table := dispatchTable{
		"known": func(ctx context.Context, client *WsClient, data []byte) error { return nil },
	}

	err := table.dispatch(context.Background(), nil, &ClientFrame{Source: "bogus"})
	assert.ErrorIs(t, err, shared.ErrUnsupportedSource)

	err = table.dispatch(context.Background(), nil, &ClientFrame{Source: "known"})
	assert.NoError(t, err)
}

func TestFrameFromEvent(t *testing.T) {
	frame := frameFromEvent(outbound.Event{Source: "new_bid", Data: map[string]interface{}{"amount": 1.0}})
	assert.Equal(t, "new_bid", frame.Source)
	assert.NotNil(t, frame.Data)
}

func TestDecodeInto(t *testing.T) {
	var req pageRequest

	require.NoError(t, decodeInto([]byte(`{"page":3}`), &req))
	assert.Equal(t, 3, req.Page)

	assert.ErrorIs(t, decodeInto(nil, &req), shared.ErrInvalidRequest)
	assert.ErrorIs(t, decodeInto([]byte(`{"page":"x"}`), &req), shared.ErrInvalidRequest)
}
