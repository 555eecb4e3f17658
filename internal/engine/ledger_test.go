package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misionbonos/bondgame/internal/domain"
)

// tradingSnapshot is the fixture used by ledger tests: round 1, trading
// open, one registered team, and a fixed quote for B1 at mid 1000 so the
// worked numbers stay readable (ask 1050, bid 950 set explicitly).
func tradingSnapshot(t *testing.T) domain.Snapshot {
	t.Helper()
	s := testSnapshot()
	s.Game.State = domain.StateTradingOn
	s.Quotes = []domain.Quote{
		{Round: 1, BondID: "B1", Mid: 1000, Bid: 950, Ask: 1050, PublishedAt: publishAt()},
	}

	var err error
	s, _, err = RegisterTeam(s, "Alfa", "", publishAt())
	require.NoError(t, err)
	return s
}

func TestExecuteOrderBuyWorkedExample(t *testing.T) {
	// BUY 10 at ask 1050 with commission 10 bps: fees = 10x1050x0.001 =
	// 10.5, cash = 1,000,000 - 10,500 - 10.5 = 989,489.5.
	s := tradingSnapshot(t)

	out, order, err := ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 10, publishAt())
	require.NoError(t, err)
	assert.Equal(t, int64(10), order.Quantity)
	assert.InDelta(t, 1050.0, order.Price, 1e-12)
	assert.InDelta(t, 10.5, order.Fees, 1e-12)
	assert.Equal(t, 1, order.Round)
	assert.NotEmpty(t, order.ID)

	positions, cash := TeamState(out, "T1")
	assert.Equal(t, int64(10), positions["B1"])
	assert.InDelta(t, 989_489.5, cash, 1e-6)
}

func TestExecuteOrderSellCreditsCashMinusFees(t *testing.T) {
	s := tradingSnapshot(t)
	s, _, err := ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 10, publishAt())
	require.NoError(t, err)

	out, order, err := ExecuteOrder(s, "T1", domain.OrderSideSell, "B1", 4, publishAt().Add(time.Second))
	require.NoError(t, err)
	assert.InDelta(t, 950.0, order.Price, 1e-12, "sells execute at the bid")

	positions, cash := TeamState(out, "T1")
	assert.Equal(t, int64(6), positions["B1"])
	wantCash := 989_489.5 + 4*950 - 4*950*0.001
	assert.InDelta(t, wantCash, cash, 1e-6)
}

func TestLedgerReplayIsDeterministic(t *testing.T) {
	s := tradingSnapshot(t)
	var err error
	s, _, err = ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 10, publishAt())
	require.NoError(t, err)
	s, _, err = ExecuteOrder(s, "T1", domain.OrderSideSell, "B1", 3, publishAt().Add(time.Second))
	require.NoError(t, err)
	s, _, err = ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 5, publishAt().Add(2*time.Second))
	require.NoError(t, err)

	pos1, cash1 := TeamState(s, "T1")
	pos2, cash2 := TeamState(s, "T1")
	assert.Equal(t, pos1, pos2)
	assert.Equal(t, cash1, cash2)
	assert.Equal(t, int64(12), pos1["B1"])
}

func TestUnrelatedTeamsOrdersDoNotAffectProjection(t *testing.T) {
	s := tradingSnapshot(t)
	var err error
	s, _, err = RegisterTeam(s, "Beta", "", publishAt())
	require.NoError(t, err)

	s, _, err = ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 10, publishAt())
	require.NoError(t, err)

	posBefore, cashBefore := TeamState(s, "T1")
	s, _, err = ExecuteOrder(s, "T2", domain.OrderSideBuy, "B1", 99, publishAt().Add(time.Second))
	require.NoError(t, err)
	posAfter, cashAfter := TeamState(s, "T1")

	assert.Equal(t, posBefore, posAfter)
	assert.Equal(t, cashBefore, cashAfter)
}

func TestBuyRejectedOnInsufficientCash(t *testing.T) {
	s := tradingSnapshot(t)

	// 1000 units at ask 1050 needs 1,050,000 plus fees, above starting cash.
	out, _, err := ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 1000, publishAt())
	assert.ErrorIs(t, err, domain.ErrInsufficientCash)
	assert.Len(t, out.Orders, 0, "rejected orders never reach the log")

	_, cash := TeamState(out, "T1")
	assert.InDelta(t, 1_000_000.0, cash, 1e-9)
}

func TestSellRejectedOnInsufficientPosition(t *testing.T) {
	s := tradingSnapshot(t)

	out, _, err := ExecuteOrder(s, "T1", domain.OrderSideSell, "B1", 1, publishAt())
	assert.ErrorIs(t, err, domain.ErrInsufficientPosition, "short selling disallowed")
	assert.Empty(t, out.Orders)
}

func TestOrderRejectedWithoutQuote(t *testing.T) {
	s := tradingSnapshot(t)

	_, _, err := ExecuteOrder(s, "T1", domain.OrderSideBuy, "B2", 1, publishAt())
	assert.ErrorIs(t, err, domain.ErrNoQuote)
}

func TestOrderRejectedWhenMarketClosed(t *testing.T) {
	for _, state := range []domain.GameState{domain.StateLobby, domain.StateTradingOff, domain.StateFinished} {
		s := tradingSnapshot(t)
		s.Game.State = state

		_, _, err := ExecuteOrder(s, "T1", domain.OrderSideBuy, "B1", 1, publishAt())
		assert.ErrorIs(t, err, domain.ErrMarketClosed, "state %s", state)
	}
}

func TestValidateOrderRejectsBadArguments(t *testing.T) {
	s := tradingSnapshot(t)

	_, err := ValidateOrder(s, "T1", domain.OrderSide("HOLD"), "B1", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, err = ValidateOrder(s, "T1", domain.OrderSideBuy, "B1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, err = ValidateOrder(s, "T9", domain.OrderSideBuy, "B1", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTeamStateReplaysInTimestampOrder(t *testing.T) {
	s := tradingSnapshot(t)

	// Orders appended out of chronological order still replay by timestamp.
	s.Orders = []domain.Order{
		{ID: "o2", Timestamp: publishAt().Add(time.Minute), TeamID: "T1", BondID: "B1", Side: domain.OrderSideSell, Quantity: 5, Price: 950, Fees: 4.75, Round: 1},
		{ID: "o1", Timestamp: publishAt(), TeamID: "T1", BondID: "B1", Side: domain.OrderSideBuy, Quantity: 5, Price: 1050, Fees: 5.25, Round: 1},
	}

	positions, cash := TeamState(s, "T1")
	assert.Equal(t, int64(0), positions["B1"])
	assert.InDelta(t, 1_000_000-5*1050-5.25+5*950-4.75, cash, 1e-9)
}

func TestRegisterTeamDuplicateName(t *testing.T) {
	s := tradingSnapshot(t)
	_, _, err := RegisterTeam(s, "Alfa", "", publishAt())
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUpdateGameConfigLockedAfterStart(t *testing.T) {
	s := tradingSnapshot(t)

	_, err := UpdateGameConfig(s, s.Game)
	assert.ErrorIs(t, err, domain.ErrGameLocked, "config locked once trading starts")

	s.Game.State = domain.StateLobby
	s.Orders = append(s.Orders, domain.Order{ID: "o1", TeamID: "T1"})
	_, err = UpdateGameConfig(s, s.Game)
	assert.ErrorIs(t, err, domain.ErrGameLocked, "config locked once orders exist")
}
