package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misionbonos/bondgame/internal/domain"
)

func testSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Game: domain.Game{
			Code:          "MB-001",
			RoundsTotal:   3,
			CurrentRound:  1,
			State:         domain.StateLobby,
			YearFraction:  0.25,
			BidSpreadBps:  20,
			AskSpreadBps:  20,
			CommissionBps: 10,
			InitialCash:   1_000_000,
			CreatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		Bonds: []domain.Bond{
			{ID: "B1", Name: "Soberano 3y", FaceValue: 1000, CouponRate: 0.08, CouponFrequency: 2, MaturityYears: 3, SpreadBps: 0},
			{ID: "B2", Name: "Corporativo 5y", FaceValue: 1000, CouponRate: 0.06, CouponFrequency: 2, MaturityYears: 5, SpreadBps: 150},
		},
		Events: []domain.MarketEvent{
			{Round: 2, Kind: domain.EventMarket, MagnitudeBps: 100},
			{Round: 2, Kind: domain.EventIdiosyncratic, BondID: "B2", MagnitudeBps: 200},
		},
	}
}

func publishAt() time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func TestPublishPricesOpensTrading(t *testing.T) {
	s := testSnapshot()

	out, quotes, err := PublishPrices(s, publishAt())
	require.NoError(t, err)
	assert.Equal(t, domain.StateTradingOn, out.Game.State)
	require.Len(t, quotes, 2)

	// Round 1 has no events; B1 has zero spread so its yield is zero and
	// its mid is the undiscounted cash-flow sum.
	q1, ok := out.QuoteFor(1, "B1")
	require.True(t, ok)
	assert.InDelta(t, 0.0, q1.EffectiveYield, 1e-12)
	assert.InDelta(t, 1240.0, q1.Mid, 1e-9)
	assert.Less(t, q1.Bid, q1.Mid)
	assert.Greater(t, q1.Ask, q1.Mid)

	// The input snapshot is untouched.
	assert.Equal(t, domain.StateLobby, s.Game.State)
	assert.Empty(t, s.Quotes)
}

func TestPublishPricesRequiresBonds(t *testing.T) {
	s := testSnapshot()
	s.Bonds = nil

	_, _, err := PublishPrices(s, publishAt())
	assert.ErrorIs(t, err, domain.ErrNoBondsLoaded)
}

func TestRepublishReplacesRoundQuotes(t *testing.T) {
	s := testSnapshot()
	out, _, err := PublishPrices(s, publishAt())
	require.NoError(t, err)

	// Re-publish while TRADING_ON is the moderator's price refresh.
	again, quotes, err := PublishPrices(out, publishAt().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, again.Quotes, 2)
	assert.Len(t, quotes, 2)
	for _, q := range again.Quotes {
		assert.Equal(t, publishAt().Add(time.Minute), q.PublishedAt)
	}
}

func TestPublishMarksRoundEventsPublished(t *testing.T) {
	s := testSnapshot()
	s.Events = append(s.Events, domain.MarketEvent{Round: 1, Kind: domain.EventMarket, MagnitudeBps: 50})

	out, _, err := PublishPrices(s, publishAt())
	require.NoError(t, err)

	for _, e := range out.Events {
		if e.Round == 1 {
			assert.True(t, e.Published)
		} else {
			assert.False(t, e.Published, "events of other rounds stay unpublished")
		}
	}
}

func TestPublishAppliesRoundShocks(t *testing.T) {
	s := testSnapshot()
	s.Game.CurrentRound = 2

	out, _, err := PublishPrices(s, publishAt())
	require.NoError(t, err)

	q1, _ := out.QuoteFor(2, "B1")
	q2, _ := out.QuoteFor(2, "B2")
	assert.InDelta(t, 0.01, q1.EffectiveYield, 1e-12)                // 0 + 100 market
	assert.InDelta(t, (150.0+100+200)/10_000, q2.EffectiveYield, 1e-12)
}

func TestCloseTrading(t *testing.T) {
	s := testSnapshot()
	s.Game.State = domain.StateTradingOn

	out, err := CloseTrading(s)
	require.NoError(t, err)
	assert.Equal(t, domain.StateTradingOff, out.Game.State)

	_, err = CloseTrading(out)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAdvanceRound(t *testing.T) {
	s := testSnapshot()
	s.Game.State = domain.StateTradingOff

	out, err := AdvanceRound(s)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Game.CurrentRound)
	assert.Equal(t, domain.StateLobby, out.Game.State)
}

func TestAdvanceRoundRejectedPastFinal(t *testing.T) {
	s := testSnapshot()
	s.Game.State = domain.StateTradingOff
	s.Game.CurrentRound = 3

	out, err := AdvanceRound(s)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 3, out.Game.CurrentRound, "round number unchanged on rejected transition")
}

func TestFinalize(t *testing.T) {
	s := testSnapshot()
	s.Game.State = domain.StateTradingOff
	s.Game.CurrentRound = 3

	out, err := Finalize(s)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFinished, out.Game.State)
}

func TestFinalizeRejectedBeforeLastRound(t *testing.T) {
	s := testSnapshot()
	s.Game.State = domain.StateTradingOff

	_, err := Finalize(s)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestIllegalTransitionsAreNoOps(t *testing.T) {
	cases := []struct {
		name  string
		state domain.GameState
		op    func(domain.Snapshot) (domain.Snapshot, error)
	}{
		{"advance from lobby", domain.StateLobby, AdvanceRound},
		{"advance while trading", domain.StateTradingOn, AdvanceRound},
		{"finalize from lobby", domain.StateLobby, Finalize},
		{"close from lobby", domain.StateLobby, CloseTrading},
		{"close when finished", domain.StateFinished, CloseTrading},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testSnapshot()
			s.Game.State = tc.state

			out, err := tc.op(s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
			assert.Equal(t, s.Game, out.Game, "game state unchanged")
		})
	}
}

func TestPublishRejectedWhenClosedOrFinished(t *testing.T) {
	for _, state := range []domain.GameState{domain.StateTradingOff, domain.StateFinished} {
		s := testSnapshot()
		s.Game.State = state
		_, _, err := PublishPrices(s, publishAt())
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "state %s", state)
	}
}

func TestApplyScenarioRejectsDuplicateBondIDs(t *testing.T) {
	s := testSnapshot()
	_, err := ApplyScenario(s, []domain.Bond{{ID: "B1"}, {ID: "B1"}}, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}
