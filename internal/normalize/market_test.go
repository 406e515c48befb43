package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyfolio/internal/domain"
)

func TestMarket(t *testing.T) {
	raw := map[string]any{
		"conditionId": "0xmkt",
		"status":      "Resolved",
		"question":    "Will it rain tomorrow?",
		"slug":        "will-it-rain-tomorrow",
		"tokens": []any{
			map[string]any{"token_id": "tok-yes", "outcome": "Yes", "winner": true},
			map[string]any{"token_id": "tok-no", "outcome": "No"},
		},
		"resolvedAt": "2023-11-14T22:13:20Z",
		"createdAt":  float64(1_690_000_000),
		"endDate":    "2023-11-14T00:00:00Z",
	}

	m := Market(raw)

	assert.Equal(t, "0xmkt", m.MarketID)
	assert.Equal(t, "resolved", m.Status)
	assert.Equal(t, "Will it rain tomorrow?", m.Title)
	assert.Equal(t, "will-it-rain-tomorrow", m.Slug)
	require.Len(t, m.Tokens, 2)
	assert.Equal(t, domain.MarketToken{TokenID: "tok-yes", Label: "Yes"}, m.Tokens[0])
	assert.Equal(t, "tok-yes", m.WinnerTokenID)
	assert.Equal(t, "2023-11-14T22:13:20Z", m.ResolvedAt)
	assert.Equal(t, "2023-07-22T04:26:40Z", m.CreatedAt)
	assert.Equal(t, "2023-11-14T00:00:00Z", m.ClosesAt)
}

func TestMarket_OutcomesAlias(t *testing.T) {
	m := Market(map[string]any{
		"id": "m-1",
		"outcomes": []any{
			map[string]any{"tokenId": "tok-a", "label": "Up"},
			map[string]any{"label": "orphan"}, // no token id, dropped
			"not an object",
		},
	})

	require.Len(t, m.Tokens, 1)
	assert.Equal(t, "tok-a", m.Tokens[0].TokenID)
	assert.Equal(t, "Up", m.Tokens[0].Label)
}

func TestMarket_EmptyButNeverNil(t *testing.T) {
	m := Market(map[string]any{"question": "no identity here"})

	assert.Empty(t, m.MarketID, "unresolvable identity must come back empty")
	assert.NotNil(t, m.Tokens)
	assert.Empty(t, m.Tokens)
	assert.Empty(t, m.ResolvedAt)
	assert.Empty(t, m.ClosesAt)
}
