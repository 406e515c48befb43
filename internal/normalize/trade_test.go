package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyfolio/internal/domain"
)

func TestTradeID_DirectField(t *testing.T) {
	assert.Equal(t, "t-1", TradeID(map[string]any{"id": "t-1"}))
	assert.Equal(t, "t-2", TradeID(map[string]any{"trade_id": "t-2"}))

	// JSON numbers decode as float64; integral ids must render without a fraction.
	assert.Equal(t, "12345", TradeID(map[string]any{"id": float64(12345)}))
}

func TestTradeID_TxHashComposites(t *testing.T) {
	t.Run("hash plus log index", func(t *testing.T) {
		got := TradeID(map[string]any{
			"transactionHash": "0xabc",
			"logIndex":        float64(7),
		})
		assert.Equal(t, "0xabc:7", got)
	})

	t.Run("nested hash", func(t *testing.T) {
		got := TradeID(map[string]any{
			"transaction": map[string]any{"hash": "0xdef"},
			"eventIndex":  float64(0),
		})
		assert.Equal(t, "0xdef:0", got)
	})

	t.Run("hash plus timestamp when no index", func(t *testing.T) {
		got := TradeID(map[string]any{
			"txHash":    "0xabc",
			"timestamp": float64(1_700_000_000),
		})
		assert.Equal(t, "0xabc:1700000000000", got)
	})
}

func TestTradeID_ContentHashFallback(t *testing.T) {
	payload := map[string]any{"price": 0.42, "size": float64(10)}

	got := TradeID(payload)
	require.True(t, strings.HasPrefix(got, "h:"))
	assert.Len(t, got, len("h:")+40)

	// Deterministic for an identical payload, distinct for a different one.
	assert.Equal(t, got, TradeID(map[string]any{"size": float64(10), "price": 0.42}))
	assert.NotEqual(t, got, TradeID(map[string]any{"price": 0.43, "size": float64(10)}))
}

func TestTradeID_FirstTierWins(t *testing.T) {
	got := TradeID(map[string]any{
		"id":              "direct",
		"transactionHash": "0xabc",
		"logIndex":        float64(1),
	})
	assert.Equal(t, "direct", got)
}

func TestTradeID_StableAcrossReprocessing(t *testing.T) {
	payloads := []map[string]any{
		{"id": "a"},
		{"transactionHash": "0x1", "logIndex": float64(3)},
		{"txHash": "0x2", "createdAt": "2023-11-14T22:13:20Z"},
		{"maker": "0xdead", "price": 0.5},
	}
	for _, p := range payloads {
		assert.Equal(t, TradeID(p), TradeID(p))
	}
}

func TestTradeTimestampMS(t *testing.T) {
	const wantMS = int64(1_700_000_000_000)

	t.Run("seconds and milliseconds agree", func(t *testing.T) {
		ms, ok := TradeTimestampMS(map[string]any{"timestamp": float64(1_700_000_000)})
		require.True(t, ok)
		assert.Equal(t, wantMS, ms)

		ms, ok = TradeTimestampMS(map[string]any{"timestamp": float64(1_700_000_000_000)})
		require.True(t, ok)
		assert.Equal(t, wantMS, ms)
	})

	t.Run("numeric string", func(t *testing.T) {
		ms, ok := TradeTimestampMS(map[string]any{"createdAt": "1700000000"})
		require.True(t, ok)
		assert.Equal(t, wantMS, ms)
	})

	t.Run("iso with Z", func(t *testing.T) {
		ms, ok := TradeTimestampMS(map[string]any{"createdAt": "2023-11-14T22:13:20Z"})
		require.True(t, ok)
		assert.Equal(t, wantMS, ms)
	})

	t.Run("iso with offset", func(t *testing.T) {
		ms, ok := TradeTimestampMS(map[string]any{"createdAt": "2023-11-14T22:13:20+00:00"})
		require.True(t, ok)
		assert.Equal(t, wantMS, ms)
	})

	t.Run("nested candidate", func(t *testing.T) {
		ms, ok := TradeTimestampMS(map[string]any{
			"trade": map[string]any{"createdAt": float64(1_700_000_000)},
		})
		require.True(t, ok)
		assert.Equal(t, wantMS, ms)
	})

	t.Run("field precedence", func(t *testing.T) {
		ms, ok := TradeTimestampMS(map[string]any{
			"createdAt": float64(1_700_000_000),
			"timestamp": float64(1_600_000_000),
		})
		require.True(t, ok)
		assert.Equal(t, wantMS, ms)
	})

	t.Run("unknown is not zero-with-ok", func(t *testing.T) {
		_, ok := TradeTimestampMS(map[string]any{"price": 0.5})
		assert.False(t, ok)

		_, ok = TradeTimestampMS(map[string]any{"createdAt": "not a time"})
		assert.False(t, ok)
	})
}

func TestSide(t *testing.T) {
	buys := []any{"buy", "Buy", "BID", "long", "Yes", "y"}
	for _, v := range buys {
		assert.Equal(t, domain.SideBuy, Side(v, nil), "input %v", v)
	}

	sells := []any{"sell", "ask", "Short", "No", "N", "SELL"}
	for _, v := range sells {
		assert.Equal(t, domain.SideSell, Side(v, nil), "input %v", v)
	}

	t.Run("outcome fallback", func(t *testing.T) {
		assert.Equal(t, domain.SideSell, Side(nil, "No"))
		assert.Equal(t, domain.SideBuy, Side(nil, "Yes"))
	})

	t.Run("unmapped defaults", func(t *testing.T) {
		assert.Equal(t, DefaultSide, Side("hold", nil))
		assert.Equal(t, DefaultSide, Side(nil, nil))
	})
}

func TestTrade(t *testing.T) {
	raw := map[string]any{
		"id":           "t-9",
		"conditionId":  "0xmkt",
		"outcomeIndex": float64(1),
		"side":         "SELL",
		"price":        0.6,
		"size":         float64(50),
		"proxyWallet":  "0xABCDEF",
		"timestamp":    float64(1_700_000_000),
	}

	rec := Trade(raw, "0xfallback")

	assert.Equal(t, "t-9", rec.TradeID)
	assert.Equal(t, "0xabcdef", rec.UserAddress)
	assert.Equal(t, "0xmkt", rec.MarketID)
	assert.Equal(t, "0xmkt:1", rec.TokenID)
	assert.Equal(t, domain.SideSell, rec.Side)
	assert.InDelta(t, 30.0, rec.Quote, 1e-9)
	assert.True(t, rec.Taker) // absent taker defaults to true
	assert.Equal(t, int64(1_700_000_000_000), rec.TradedAtMS)
	assert.True(t, rec.Ingestible())
	assert.Equal(t, raw, rec.Raw)
}

func TestTrade_DefaultUserAndNotIngestible(t *testing.T) {
	rec := Trade(map[string]any{"price": 0.5}, "0xFallBack")

	assert.Equal(t, "0xfallback", rec.UserAddress)
	assert.Zero(t, rec.TradedAtMS)
	assert.False(t, rec.Ingestible(), "unknown timestamp must exclude the record")
}
