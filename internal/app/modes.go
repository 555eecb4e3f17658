package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/misionbonos/bondgame/internal/scenario"
	"github.com/misionbonos/bondgame/internal/server"
	"github.com/misionbonos/bondgame/internal/server/handler"
	"github.com/misionbonos/bondgame/internal/server/ws"
	"github.com/misionbonos/bondgame/internal/service"
	"github.com/misionbonos/bondgame/internal/store/memory"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// buildServices assembles the service layer on top of wired dependencies.
func (a *App) buildServices(deps *Dependencies) (*service.GameService, *service.TeamService, *service.OrderService) {
	games := service.NewGameService(
		deps.SnapshotStore,
		deps.LockManager,
		deps.QuoteCache,
		deps.SignalBus,
		deps.AuditStore,
		service.GameDefaults{
			RoundsTotal:   a.cfg.Game.RoundsTotal,
			YearFraction:  a.cfg.Game.YearFraction,
			BidSpreadBps:  a.cfg.Game.BidSpreadBps,
			AskSpreadBps:  a.cfg.Game.AskSpreadBps,
			CommissionBps: a.cfg.Game.CommissionBps,
			InitialCash:   a.cfg.Game.InitialCash,
		},
		a.logger,
	)
	if deps.Archiver != nil {
		games = games.WithArchiver(deps.Archiver)
	}
	if deps.Notifier != nil {
		games = games.WithAnnouncer(deps.Notifier)
	}
	return games, service.NewTeamService(games, a.logger), service.NewOrderService(games, a.logger)
}

// ServerMode runs the HTTP API and the WebSocket hub until the context is
// cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	games, teams, orders := a.buildServices(deps)
	hub := ws.NewHub(deps.SignalBus, a.logger)

	srv := server.NewServer(
		server.Config{
			Port:         a.cfg.Server.Port,
			CORSOrigins:  a.cfg.Server.CORSOrigins,
			ModeratorKey: a.cfg.Server.ModeratorKey,
		},
		server.Handlers{
			Health:   handler.NewHealthHandler(a.logger),
			Games:    handler.NewGameHandler(games, a.logger),
			Scenario: handler.NewScenarioHandler(games, a.logger),
			Teams:    handler.NewTeamHandler(games, teams, a.logger),
			Orders:   handler.NewOrderHandler(games, orders, a.logger),
		},
		hub,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// SimMode plays an entire game headlessly on in-memory stores: it loads the
// configured scenario CSV, publishes and closes every round, and prints the
// quotes as they come out. Useful for verifying a scenario file before
// class.
func (a *App) SimMode(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting sim mode",
		slog.String("scenario", a.cfg.Sim.ScenarioPath),
		slog.String("game", a.cfg.Sim.GameCode),
	)

	f, err := os.Open(a.cfg.Sim.ScenarioPath)
	if err != nil {
		return fmt.Errorf("app: open scenario: %w", err)
	}
	res, err := scenario.Load(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("app: load scenario: %w", err)
	}
	for _, warn := range res.Warnings {
		a.logger.Warn("scenario warning", slog.String("warning", warn))
	}
	if len(res.Bonds) == 0 {
		return fmt.Errorf("app: scenario %s contains no bonds", a.cfg.Sim.ScenarioPath)
	}

	deps := &Dependencies{
		SnapshotStore: memory.NewSnapshotStore(),
		AuditStore:    memory.NewAuditStore(),
		LockManager:   memory.NewLockManager(),
		QuoteCache:    memory.NewQuoteCache(),
		SignalBus:     memory.NewSignalBus(),
	}
	games, _, _ := a.buildServices(deps)

	code := a.cfg.Sim.GameCode
	snap, err := games.ApplyScenario(ctx, code, res.Bonds, res.Events)
	if err != nil {
		return fmt.Errorf("app: apply scenario: %w", err)
	}

	for round := 1; round <= snap.Game.RoundsTotal; round++ {
		quotes, err := games.PublishPrices(ctx, code)
		if err != nil {
			return fmt.Errorf("app: publish round %d: %w", round, err)
		}

		fmt.Printf("round %d\n", round)
		for _, q := range quotes {
			fmt.Printf("  %-12s yield=%.4f mid=%.2f bid=%.2f ask=%.2f\n",
				q.BondID, q.EffectiveYield, q.Mid, q.Bid, q.Ask)
		}

		if _, err := games.CloseTrading(ctx, code); err != nil {
			return fmt.Errorf("app: close round %d: %w", round, err)
		}

		if round < snap.Game.RoundsTotal {
			if _, err := games.AdvanceRound(ctx, code); err != nil {
				return fmt.Errorf("app: advance round %d: %w", round, err)
			}
		}
	}

	if _, err := games.Finalize(ctx, code); err != nil {
		return fmt.Errorf("app: finalize: %w", err)
	}

	a.logger.InfoContext(ctx, "sim complete",
		slog.Int("rounds", snap.Game.RoundsTotal),
		slog.Int("bonds", len(res.Bonds)),
		slog.Int("events", len(res.Events)),
	)
	return nil
}
