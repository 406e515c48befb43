package normalize

import (
	"strings"

	"polyfolio/internal/domain"
)

var (
	marketIDKeys   = []string{"conditionId", "condition_id", "market_id", "id"}
	marketTitle    = []string{"question", "title"}
	marketSlugKeys = []string{"slug", "market_slug", "marketSlug"}

	marketResolvedKeys = []string{"resolvedAt", "resolved_at", "resolutionDate"}
	marketCreatedKeys  = []string{"createdAt", "created_at", "creationDate"}
	marketClosesKeys   = []string{"closesAt", "closes_at", "endDate", "endDateIso", "end_date_iso", "closeTime"}

	tokenIDKeys    = []string{"token_id", "tokenId", "id"}
	tokenLabelKeys = []string{"outcome", "label", "name", "title"}
)

// MarketID resolves the market identity from a raw market payload, or ""
// when none of the known id fields is present.
func MarketID(m map[string]any) string {
	return stringify(firstField(m, marketIDKeys...))
}

// Market converts a raw upstream market object into canonical metadata.
// Records whose identity cannot be resolved are not usable and should be
// discarded by the caller (MarketID comes back empty). The token list keeps
// only entries carrying a non-empty token identifier and is never nil.
func Market(m map[string]any) domain.Market {
	status := strings.ToLower(strings.TrimSpace(stringify(firstField(m, "status", "state"))))

	tokens := make([]domain.MarketToken, 0, 2)
	winner := ""

	rawTokens := firstField(m, "tokens", "outcomes")
	if list, ok := rawTokens.([]any); ok {
		for _, entry := range list {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			id := stringify(firstField(obj, tokenIDKeys...))
			if id == "" {
				continue
			}
			tokens = append(tokens, domain.MarketToken{
				TokenID: id,
				Label:   stringify(firstField(obj, tokenLabelKeys...)),
			})
			if toBool(obj["winner"], false) && winner == "" {
				winner = id
			}
		}
	}

	if winner == "" {
		winner = stringify(firstField(m, "winnerTokenId", "winner_token_id"))
	}

	return domain.Market{
		MarketID:      MarketID(m),
		Status:        status,
		Title:         stringify(firstField(m, marketTitle...)),
		Slug:          stringify(firstField(m, marketSlugKeys...)),
		Tokens:        tokens,
		ResolvedAt:    isoUTC(firstField(m, marketResolvedKeys...)),
		WinnerTokenID: winner,
		CreatedAt:     isoUTC(firstField(m, marketCreatedKeys...)),
		ClosesAt:      isoUTC(firstField(m, marketClosesKeys...)),
		Raw:           m,
	}
}
