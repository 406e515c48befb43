package domain

// MarketToken is one outcome token of a market.
type MarketToken struct {
	TokenID string `json:"token_id"`
	Label   string `json:"label"`
}

// Market is the mirrored metadata for a prediction market referenced by
// trades. Timestamps are RFC-3339 UTC strings and may be empty when the
// upstream payload carries no parseable value. Tokens is never nil.
type Market struct {
	MarketID      string         `json:"market_id"`
	Status        string         `json:"status"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Tokens        []MarketToken  `json:"tokens"`
	ResolvedAt    string         `json:"resolved_at,omitempty"`
	WinnerTokenID string         `json:"winner_token_id,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	ClosesAt      string         `json:"closes_at,omitempty"`
	Raw           map[string]any `json:"raw"`
}
