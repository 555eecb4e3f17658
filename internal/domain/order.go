package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Valid reports whether s is one of the two recognized sides.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// Order is one executed trade. The order log is append-only: orders are
// never edited or cancelled, and team balances are a projection of this log.
type Order struct {
	ID        string    `json:"order_id"`
	Timestamp time.Time `json:"ts"`
	TeamID    string    `json:"team_id"`
	BondID    string    `json:"bond_id"`
	Side      OrderSide `json:"side"`
	Quantity  int64     `json:"qty"`
	Price     float64   `json:"price_exec"`
	Fees      float64   `json:"fees"`
	Round     int       `json:"round"`
}
