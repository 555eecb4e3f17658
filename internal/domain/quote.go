package domain

import "time"

// Quote is the published price set for one bond in one round. Quotes are
// immutable once created; a re-publish for the same round replaces that
// round's quotes wholesale.
type Quote struct {
	Round          int       `json:"round"`
	BondID         string    `json:"bond_id"`
	EffectiveYield float64   `json:"effective_yield"`
	Mid            float64   `json:"mid"`
	Bid            float64   `json:"bid"`
	Ask            float64   `json:"ask"`
	PublishedAt    time.Time `json:"published_at"`
}
