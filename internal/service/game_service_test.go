package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misionbonos/bondgame/internal/domain"
	"github.com/misionbonos/bondgame/internal/store/memory"
)

func newTestServices(t *testing.T) (*GameService, *TeamService, *OrderService, *memory.AuditStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := memory.NewAuditStore()
	games := NewGameService(
		memory.NewSnapshotStore(),
		memory.NewLockManager(),
		memory.NewQuoteCache(),
		memory.NewSignalBus(),
		audit,
		GameDefaults{
			RoundsTotal:   2,
			YearFraction:  0.25,
			BidSpreadBps:  20,
			AskSpreadBps:  20,
			CommissionBps: 10,
			InitialCash:   1_000_000,
		},
		logger,
	)
	return games, NewTeamService(games, logger), NewOrderService(games, logger), audit
}

func testBonds() []domain.Bond {
	return []domain.Bond{
		{ID: "B1", Name: "Bono Par", FaceValue: 1000, CouponRate: 0.08, CouponFrequency: 2, MaturityYears: 3},
	}
}

func TestGetBootstrapsDefaults(t *testing.T) {
	games, _, _, _ := newTestServices(t)
	ctx := context.Background()

	snap, err := games.Get(ctx, "MB-001")
	require.NoError(t, err)
	assert.Equal(t, "MB-001", snap.Game.Code)
	assert.Equal(t, domain.StateLobby, snap.Game.State)
	assert.Equal(t, 1, snap.Game.CurrentRound)
	assert.Equal(t, 2, snap.Game.RoundsTotal)
	assert.Equal(t, 1_000_000.0, snap.Game.InitialCash)

	codes, err := games.ListGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"MB-001"}, codes)
}

func TestFullGameLifecycle(t *testing.T) {
	games, teams, orders, _ := newTestServices(t)
	ctx := context.Background()
	const code = "MB-001"

	_, err := games.ApplyScenario(ctx, code, testBonds(), []domain.MarketEvent{
		{Round: 2, Kind: domain.EventMarket, MagnitudeBps: 100},
	})
	require.NoError(t, err)

	team, err := teams.Register(ctx, code, "Alfa", "1234")
	require.NoError(t, err)

	// Round 1: publish, trade, close, advance. At zero effective yield the
	// mid is the undiscounted cash flow sum: 6 coupons of 40 plus face.
	quotes, err := games.PublishPrices(ctx, code)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.InDelta(t, 1240, quotes[0].Mid, 1e-9)
	round1Mid := quotes[0].Mid

	order, err := orders.Submit(ctx, code, team.ID, domain.OrderSideBuy, "B1", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, order.Round)
	assert.InDelta(t, quotes[0].Ask, order.Price, 1e-9)

	_, err = games.CloseTrading(ctx, code)
	require.NoError(t, err)

	snap, err := games.AdvanceRound(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Game.CurrentRound)
	assert.Equal(t, domain.StateLobby, snap.Game.State)

	// Round 2: the +100bps shock discounts the remaining flows harder.
	quotes, err = games.PublishPrices(ctx, code)
	require.NoError(t, err)
	assert.Less(t, quotes[0].Mid, round1Mid)

	_, err = games.CloseTrading(ctx, code)
	require.NoError(t, err)

	snap, err = games.Finalize(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFinished, snap.Game.State)

	ranking, err := games.FinalRanking(ctx, code)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	assert.Less(t, ranking[0].ReturnPct, 0.0, "bought at the ask, marked after the yield shock")
}

func TestTeamViewMarksToMarket(t *testing.T) {
	games, teams, orders, _ := newTestServices(t)
	ctx := context.Background()
	const code = "MB-002"

	_, err := games.ApplyScenario(ctx, code, testBonds(), nil)
	require.NoError(t, err)

	team, err := teams.Register(ctx, code, "Beta", "")
	require.NoError(t, err)

	_, err = games.PublishPrices(ctx, code)
	require.NoError(t, err)

	_, err = orders.Submit(ctx, code, team.ID, domain.OrderSideBuy, "B1", 5)
	require.NoError(t, err)

	view, err := games.TeamView(ctx, code, "Beta")
	require.NoError(t, err)
	assert.Equal(t, team.ID, view.TeamID)
	assert.Equal(t, int64(5), view.Positions["B1"])
	assert.InDelta(t, 5*1240.0, view.PositionValue, 1e-6)
	assert.Less(t, view.Cash, 1_000_000.0)
	assert.Less(t, view.PortfolioValue, 1_000_000.0, "spread and fees cost money")
}

func TestRegisterDuplicateName(t *testing.T) {
	_, teams, _, _ := newTestServices(t)
	ctx := context.Background()

	_, err := teams.Register(ctx, "MB-003", "Alfa", "")
	require.NoError(t, err)

	_, err = teams.Register(ctx, "MB-003", "Alfa", "")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestLoginPINCheck(t *testing.T) {
	_, teams, _, _ := newTestServices(t)
	ctx := context.Background()
	const code = "MB-004"

	_, err := teams.Register(ctx, code, "Alfa", "1234")
	require.NoError(t, err)
	_, err = teams.Register(ctx, code, "Beta", "")
	require.NoError(t, err)

	_, err = teams.Login(ctx, code, "Alfa", "1234")
	assert.NoError(t, err)

	_, err = teams.Login(ctx, code, "Alfa", "9999")
	assert.ErrorIs(t, err, domain.ErrInvalidPIN)

	_, err = teams.Login(ctx, code, "Gamma", "1234")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// No PIN registered means any value is accepted.
	_, err = teams.Login(ctx, code, "Beta", "whatever")
	assert.NoError(t, err)
}

func TestRejectedOrderIsAuditedAndNotPersisted(t *testing.T) {
	games, teams, orders, audit := newTestServices(t)
	ctx := context.Background()
	const code = "MB-005"

	_, err := games.ApplyScenario(ctx, code, testBonds(), nil)
	require.NoError(t, err)
	team, err := teams.Register(ctx, code, "Alfa", "")
	require.NoError(t, err)
	_, err = games.PublishPrices(ctx, code)
	require.NoError(t, err)

	// Selling without a position is rejected.
	_, err = orders.Submit(ctx, code, team.ID, domain.OrderSideSell, "B1", 1)
	require.ErrorIs(t, err, domain.ErrInsufficientPosition)

	snap, err := games.Get(ctx, code)
	require.NoError(t, err)
	assert.Empty(t, snap.Orders)

	entries, err := audit.List(ctx, code, 10)
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if e.Event == "order.reject" {
			found = true
		}
	}
	assert.True(t, found, "rejection should be audited")
}

func TestModeratorActionsRequireLegalState(t *testing.T) {
	games, _, _, _ := newTestServices(t)
	ctx := context.Background()
	const code = "MB-006"

	// No bonds loaded yet.
	_, err := games.PublishPrices(ctx, code)
	assert.ErrorIs(t, err, domain.ErrNoBondsLoaded)

	// Closing from the lobby is illegal.
	_, err = games.CloseTrading(ctx, code)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Config updates lock once trading has started.
	_, err = games.ApplyScenario(ctx, code, testBonds(), nil)
	require.NoError(t, err)
	_, err = games.PublishPrices(ctx, code)
	require.NoError(t, err)

	snap, err := games.Get(ctx, code)
	require.NoError(t, err)
	cfg := snap.Game
	cfg.RoundsTotal = 5
	_, err = games.UpdateConfig(ctx, code, cfg)
	assert.ErrorIs(t, err, domain.ErrGameLocked)
}
