package domain

// Side is the normalized direction of a trade fill.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeRecord is a canonical trade row mirrored from the upstream ledger.
// TradeID is globally unique per source event; Raw retains the original
// payload for forensic replay. JSON tags match the jsonb rows consumed by
// the upsert_trades_bulk SQL function.
type TradeRecord struct {
	TradeID     string         `json:"trade_id"`
	UserAddress string         `json:"user_address"`
	MarketID    string         `json:"market_id"`
	TokenID     string         `json:"token_id"`
	Side        Side           `json:"side"`
	Price       float64        `json:"price"`
	Size        float64        `json:"size"`
	Quote       float64        `json:"quote"`
	Taker       bool           `json:"taker"`
	TradedAtMS  int64          `json:"traded_at_ms"`
	Raw         map[string]any `json:"raw"`
}

// Ingestible reports whether the record may be persisted. Records with no
// derivable identity or timestamp must never reach the store.
func (t TradeRecord) Ingestible() bool {
	return t.TradeID != "" && t.TradedAtMS != 0
}
