package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"polyfolio/internal/domain"
)

// Candidate field names, in priority order. Top-level keys are consulted
// before nested paths; within a tier the first non-nil value wins and later
// rules are never consulted.
var (
	tradeIDKeys = []string{"id", "trade_id", "tradeId", "event_id"}

	txHashKeys    = []string{"transactionHash", "txHash", "hash", "tx_hash"}
	txHashPaths   = [][]string{{"transaction", "hash"}, {"tx", "hash"}}
	logIndexKeys  = []string{"logIndex", "log_index", "eventIndex", "event_index", "logIdx", "outcomeIndex"}
	logIndexPaths = [][]string{{"event", "index"}}
	compositeTS   = []string{"timestamp", "timestampMs", "timeMs", "time", "createdAt", "created_at"}

	tradeTSKeys = []string{
		"createdAt", "created_at", "created", "created_time",
		"executedAt", "executed_at",
		"timestamp", "timestampMs", "timeMs",
		"time", "filledAt",
		"blockTimestamp", "block_time", "blockTime",
	}
	tradeTSPaths = [][]string{
		{"trade", "createdAt"}, {"trade", "timestamp"},
		{"fill", "createdAt"}, {"fill", "timestamp"},
		{"transaction", "timestamp"},
	}
)

// TradeID derives a stable identity for a raw trade payload. Tiers, in
// order: a direct id field; transactionHash:logIndex; transactionHash plus
// the millisecond timestamp; finally a content hash of the canonical JSON
// form. The result is deterministic for a given payload, so reprocessing a
// record always reproduces the stored identity. Returns "" only when the
// payload cannot even be marshalled.
func TradeID(t map[string]any) string {
	if v := firstField(t, tradeIDKeys...); v != nil {
		return stringify(v)
	}

	txh := firstField(t, txHashKeys...)
	if txh == nil {
		txh = nestedField(t, txHashPaths...)
	}

	if txh != nil {
		idx := firstField(t, logIndexKeys...)
		if idx == nil {
			idx = nestedField(t, logIndexPaths...)
		}
		if idx != nil {
			return stringify(txh) + ":" + stringify(idx)
		}

		if ts := firstField(t, compositeTS...); ts != nil {
			if ms, ok := asMillis(ts); ok {
				return stringify(txh) + ":" + strconv.FormatInt(ms, 10)
			}
		}
	}

	return contentHashID(t)
}

// contentHashID is the last-resort identity tier: "h:" plus the hex SHA-1 of
// the payload's canonical JSON form. encoding/json marshals map keys in
// sorted order, which is the canonical form relied on here.
func contentHashID(t map[string]any) string {
	data, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha1.Sum(data)
	return "h:" + hex.EncodeToString(sum[:])
}

// TradeTimestampMS derives the trade's epoch-millisecond timestamp. The
// first candidate field that is present decides the outcome: if its value
// does not parse, the result is unknown (ok=false) rather than falling
// through to later candidates. Callers must exclude unknown-timestamp
// records from ingestion; 0 is never a valid trade time.
func TradeTimestampMS(t map[string]any) (int64, bool) {
	v := firstField(t, tradeTSKeys...)
	if v == nil {
		v = nestedField(t, tradeTSPaths...)
	}
	if v == nil {
		return 0, false
	}
	return asMillis(v)
}

// Side maps the many upstream spellings of trade direction onto buy/sell.
// When the primary side value is absent, the outcome label ("Yes"/"No") is
// consulted with the same mapping. Anything unrecognized falls back to
// DefaultSide; this is a deliberate lossy-but-available policy, kept from
// the original ingestion behaviour.
func Side(raw any, outcome any) domain.Side {
	if raw == nil {
		if s, ok := outcome.(string); ok {
			raw = s
		}
	}

	s := ""
	if raw != nil {
		s = strings.ToLower(strings.TrimSpace(stringify(raw)))
	}
	switch s {
	case "buy", "bid", "long", "yes", "y":
		return domain.SideBuy
	case "sell", "ask", "short", "no", "n":
		return domain.SideSell
	}
	return DefaultSide
}

// DefaultSide is applied to unmapped side values.
const DefaultSide = domain.SideBuy

// Trade converts a raw upstream trade object into a canonical TradeRecord.
// defaultUser fills the user address when the payload carries none. The
// returned record may be non-ingestible (empty id or zero timestamp); the
// caller decides whether to drop it.
func Trade(t map[string]any, defaultUser string) domain.TradeRecord {
	price := toFloat(t["price"])
	size := toFloat(t["size"])

	marketID := stringify(firstField(t, "conditionId", "market_id", "condition_id"))

	tokenID := stringify(firstField(t, "tokenId", "token_id"))
	if tokenID == "" && marketID != "" {
		if idx := t["outcomeIndex"]; idx != nil {
			tokenID = marketID + ":" + stringify(idx)
		}
	}

	user := stringify(firstField(t, "user", "address", "proxyWallet"))
	if user == "" {
		user = defaultUser
	}

	ms, _ := TradeTimestampMS(t)

	return domain.TradeRecord{
		TradeID:     TradeID(t),
		UserAddress: strings.ToLower(user),
		MarketID:    marketID,
		TokenID:     tokenID,
		Side:        Side(t["side"], t["outcome"]),
		Price:       price,
		Size:        size,
		Quote:       price * size,
		Taker:       toBool(t["taker"], true),
		TradedAtMS:  ms,
		Raw:         t,
	}
}
