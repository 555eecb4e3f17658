// Package engine implements the bond-game simulation core: analytic bond
// valuation, scripted yield-shock aggregation, the round state machine, the
// replay-based order ledger, and team rankings. Every operation is a pure
// function over a domain.Snapshot; persistence and locking live with the
// callers.
package engine

import (
	"math"

	"github.com/misionbonos/bondgame/internal/domain"
)

// PriceBondMid computes the theoretical mid price of a bond under the given
// effective yield, using discrete compounding of the remaining cash flows.
//
// Remaining maturity shrinks by yearFraction per elapsed round. The number
// of remaining coupon periods is floored at one, so a bond past nominal
// maturity still carries a terminal coupon-plus-principal payment and its
// price never collapses to zero mid-game.
func PriceBondMid(b domain.Bond, yield, yearFraction float64, roundsElapsed int) float64 {
	remaining := math.Max(0, b.MaturityYears-float64(roundsElapsed)*yearFraction)
	periods := int(math.Ceil(remaining * float64(b.CouponFrequency)))
	if periods < 1 {
		periods = 1
	}

	coupon := b.FaceValue * b.CouponRate / float64(b.CouponFrequency)
	rate := yield / float64(b.CouponFrequency)

	price := 0.0
	discount := 1.0
	for k := 1; k <= periods; k++ {
		discount /= 1 + rate
		price += coupon * discount
	}
	price += b.FaceValue * discount
	return price
}

// EffectiveYield converts a bond's base credit spread plus the round's
// aggregated market and idiosyncratic shocks into an annualized yield.
// There is no separate risk-free curve; the bps sum is the whole rate.
func EffectiveYield(spreadBps, marketBps, idiosBps float64) float64 {
	return (spreadBps + marketBps + idiosBps) / 10_000
}

// BidAsk derives the two tradeable prices from a mid price and the
// configured half-spreads in basis points.
func BidAsk(mid, bidSpreadBps, askSpreadBps float64) (bid, ask float64) {
	bid = mid * (1 - bidSpreadBps/10_000)
	ask = mid * (1 + askSpreadBps/10_000)
	return bid, ask
}
