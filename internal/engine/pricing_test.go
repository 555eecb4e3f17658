package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/misionbonos/bondgame/internal/domain"
)

func TestPriceBondMidParIdentity(t *testing.T) {
	// When the effective yield equals the coupon rate, a bond prices at par
	// regardless of the number of remaining periods.
	bonds := []domain.Bond{
		{ID: "B1", FaceValue: 1000, CouponRate: 0.08, CouponFrequency: 2, MaturityYears: 3},
		{ID: "B2", FaceValue: 500, CouponRate: 0.05, CouponFrequency: 1, MaturityYears: 10},
		{ID: "B3", FaceValue: 1000, CouponRate: 0.12, CouponFrequency: 4, MaturityYears: 1.5},
	}
	for _, b := range bonds {
		for elapsed := 0; elapsed < 4; elapsed++ {
			got := PriceBondMid(b, b.CouponRate, 0.25, elapsed)
			assert.InDelta(t, b.FaceValue, got, 1e-9, "bond %s elapsed %d", b.ID, elapsed)
		}
	}
}

func TestPriceBondMidZeroYield(t *testing.T) {
	// Worked example: face 1000, coupon 8%, frequency 2, maturity 3y, zero
	// yield, round 1 => 6 undiscounted coupons of 40 plus principal.
	b := domain.Bond{ID: "B1", FaceValue: 1000, CouponRate: 0.08, CouponFrequency: 2, MaturityYears: 3}
	got := PriceBondMid(b, 0, 0.25, 0)
	assert.InDelta(t, 1240.0, got, 1e-9)
}

func TestPriceBondMidPastMaturityFloorsAtOnePeriod(t *testing.T) {
	b := domain.Bond{ID: "B1", FaceValue: 1000, CouponRate: 0.08, CouponFrequency: 2, MaturityYears: 1}
	// 8 rounds of a quarter-year each puts the bond two years past its
	// nominal maturity; one terminal period must remain.
	got := PriceBondMid(b, 0.08, 0.25, 8)
	want := (1000*0.08/2 + 1000) / 1.04
	assert.InDelta(t, want, got, 1e-9)
	assert.Greater(t, got, 0.0)
}

func TestPriceBondMidHigherYieldLowerPrice(t *testing.T) {
	b := domain.Bond{ID: "B1", FaceValue: 1000, CouponRate: 0.08, CouponFrequency: 2, MaturityYears: 3}
	low := PriceBondMid(b, 0.04, 0.25, 0)
	high := PriceBondMid(b, 0.12, 0.25, 0)
	assert.Greater(t, low, high)
}

func TestEffectiveYield(t *testing.T) {
	assert.InDelta(t, 0.0, EffectiveYield(0, 0, 0), 1e-12)
	assert.InDelta(t, 0.0225, EffectiveYield(100, 75, 50), 1e-12)
	assert.InDelta(t, -0.005, EffectiveYield(50, -100, 0), 1e-12)
}

func TestBidAskBracketsMid(t *testing.T) {
	bid, ask := BidAsk(1000, 20, 20)
	assert.InDelta(t, 998.0, bid, 1e-9)
	assert.InDelta(t, 1002.0, ask, 1e-9)
	assert.Less(t, bid, 1000.0)
	assert.Greater(t, ask, 1000.0)

	// Zero spreads are legal and collapse both sides onto the mid.
	bid, ask = BidAsk(1000, 0, 0)
	assert.Equal(t, 1000.0, bid)
	assert.Equal(t, 1000.0, ask)
}
