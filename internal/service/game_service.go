package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/misionbonos/bondgame/internal/domain"
	"github.com/misionbonos/bondgame/internal/engine"
)

// lockTTL bounds how long a crashed holder can block a game. Engine
// mutations are in-memory and complete in microseconds; the TTL only
// matters when a server dies mid-save.
const lockTTL = 10 * time.Second

// GameDefaults are the parameters applied when a game code is first
// accessed.
type GameDefaults struct {
	RoundsTotal   int
	YearFraction  float64
	BidSpreadBps  float64
	AskSpreadBps  float64
	CommissionBps float64
	InitialCash   float64
}

// Announcer pushes human-readable round announcements to chat channels.
// Satisfied by notify.Notifier.
type Announcer interface {
	Notify(ctx context.Context, event, title, message string) error
}

// GameService drives the round lifecycle: scenario loading, price
// publication, trading windows, round advancement, and final rankings.
type GameService struct {
	snaps    domain.SnapshotStore
	locks    domain.LockManager
	quotes   domain.QuoteCache
	bus      domain.SignalBus
	audit    domain.AuditStore
	archiver domain.Archiver
	announce Announcer
	defaults GameDefaults
	logger   *slog.Logger
	now      func() time.Time
}

// NewGameService creates a GameService with all required dependencies.
func NewGameService(
	snaps domain.SnapshotStore,
	locks domain.LockManager,
	quotes domain.QuoteCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	defaults GameDefaults,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		snaps:    snaps,
		locks:    locks,
		quotes:   quotes,
		bus:      bus,
		audit:    audit,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// WithArchiver attaches an archiver so Finalize uploads the finished game
// to object storage. Without one, finished games only live in the snapshot
// store.
func (s *GameService) WithArchiver(a domain.Archiver) *GameService {
	s.archiver = a
	return s
}

// WithAnnouncer attaches a chat announcer for round lifecycle events.
func (s *GameService) WithAnnouncer(a Announcer) *GameService {
	s.announce = a
	return s
}

// announceEvent sends a chat announcement, best-effort.
func (s *GameService) announceEvent(ctx context.Context, event, title, message string) {
	if s.announce == nil {
		return
	}
	if err := s.announce.Notify(ctx, event, title, message); err != nil {
		s.logger.Warn("announce", "event", event, "error", err)
	}
}

// withGame runs fn inside the game's lock as one load-mutate-save cycle.
// A game code that has never been saved starts from the configured
// defaults. The snapshot returned by fn is persisted; fn returning an
// error leaves the store untouched.
func (s *GameService) withGame(ctx context.Context, code string, fn func(domain.Snapshot) (domain.Snapshot, error)) (domain.Snapshot, error) {
	unlock, err := s.locks.Acquire(ctx, "game:"+code, lockTTL)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("game_service: lock %s: %w", code, err)
	}
	defer unlock()

	snap, err := s.snaps.Load(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Snapshot{}, err
		}
		snap = s.bootstrapSnapshot(code)
	}

	next, err := fn(snap)
	if err != nil {
		return domain.Snapshot{}, err
	}

	saved, err := s.snaps.Save(ctx, next)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return saved, nil
}

// bootstrapSnapshot builds the default first-lobby state for a fresh code.
func (s *GameService) bootstrapSnapshot(code string) domain.Snapshot {
	return domain.Snapshot{
		Game: domain.Game{
			Code:          code,
			RoundsTotal:   s.defaults.RoundsTotal,
			CurrentRound:  1,
			State:         domain.StateLobby,
			YearFraction:  s.defaults.YearFraction,
			BidSpreadBps:  s.defaults.BidSpreadBps,
			AskSpreadBps:  s.defaults.AskSpreadBps,
			CommissionBps: s.defaults.CommissionBps,
			InitialCash:   s.defaults.InitialCash,
			CreatedAt:     s.now().UTC(),
		},
	}
}

// Get returns the game's snapshot, creating it with defaults on first
// access.
func (s *GameService) Get(ctx context.Context, code string) (domain.Snapshot, error) {
	snap, err := s.snaps.Load(ctx, code)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Snapshot{}, err
	}

	saved, err := s.withGame(ctx, code, func(snap domain.Snapshot) (domain.Snapshot, error) {
		return snap, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.auditLog(ctx, code, "game.bootstrap", map[string]any{
		"rounds_total": saved.Game.RoundsTotal,
		"initial_cash": saved.Game.InitialCash,
	})
	return saved, nil
}

// ListGames returns all known game codes.
func (s *GameService) ListGames(ctx context.Context) ([]string, error) {
	return s.snaps.ListCodes(ctx)
}

// AuditTrail returns the most recent audit entries for a game.
func (s *GameService) AuditTrail(ctx context.Context, code string, limit int) ([]domain.AuditEntry, error) {
	return s.audit.List(ctx, code, limit)
}

// UpdateConfig applies moderator-entered game parameters. Only legal while
// the game sits in its first lobby with no orders.
func (s *GameService) UpdateConfig(ctx context.Context, code string, cfg domain.Game) (domain.Snapshot, error) {
	saved, err := s.withGame(ctx, code, func(snap domain.Snapshot) (domain.Snapshot, error) {
		return engine.UpdateGameConfig(snap, cfg)
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.auditLog(ctx, code, "game.config", map[string]any{
		"rounds_total":   saved.Game.RoundsTotal,
		"year_fraction":  saved.Game.YearFraction,
		"bid_spread_bps": saved.Game.BidSpreadBps,
		"ask_spread_bps": saved.Game.AskSpreadBps,
		"commission_bps": saved.Game.CommissionBps,
		"initial_cash":   saved.Game.InitialCash,
	})
	return saved, nil
}

// ApplyScenario replaces the game's bond catalog and event script.
func (s *GameService) ApplyScenario(ctx context.Context, code string, bonds []domain.Bond, events []domain.MarketEvent) (domain.Snapshot, error) {
	saved, err := s.withGame(ctx, code, func(snap domain.Snapshot) (domain.Snapshot, error) {
		return engine.ApplyScenario(snap, bonds, events)
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.auditLog(ctx, code, "scenario.load", map[string]any{
		"bonds":  len(bonds),
		"events": len(events),
	})
	publishEvent(ctx, s.bus, s.logger, ChannelGame, code, "scenario.loaded", map[string]any{
		"bonds":  len(bonds),
		"events": len(events),
	})
	return saved, nil
}

// PublishPrices computes and publishes the current round's quotes, opening
// trading. The round's mid prices go to the quote cache and the full
// quotes to the signal bus.
func (s *GameService) PublishPrices(ctx context.Context, code string) ([]domain.Quote, error) {
	var quotes []domain.Quote
	saved, err := s.withGame(ctx, code, func(snap domain.Snapshot) (domain.Snapshot, error) {
		next, qs, err := engine.PublishPrices(snap, s.now().UTC())
		quotes = qs
		return next, err
	})
	if err != nil {
		return nil, err
	}

	round := saved.Game.CurrentRound
	mids := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		mids[q.BondID] = q.Mid
	}
	if err := s.quotes.SetMids(ctx, code, round, mids); err != nil {
		s.logger.Warn("cache round mids", "game", code, "round", round, "error", err)
	}

	s.auditLog(ctx, code, "round.publish", map[string]any{
		"round": round,
		"bonds": len(quotes),
	})
	publishEvent(ctx, s.bus, s.logger, ChannelQuotes, code, "quotes.published", map[string]any{
		"round":  round,
		"quotes": quotes,
	})
	s.announceEvent(ctx, "round.publish",
		fmt.Sprintf("%s: round %d open", code, round),
		fmt.Sprintf("Prices for %d bonds are out. Trade!", len(quotes)))
	return quotes, nil
}

// CloseTrading ends the current round's trading window.
func (s *GameService) CloseTrading(ctx context.Context, code string) (domain.Snapshot, error) {
	saved, err := s.withGame(ctx, code, func(snap domain.Snapshot) (domain.Snapshot, error) {
		return engine.CloseTrading(snap)
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.auditLog(ctx, code, "round.close", map[string]any{"round": saved.Game.CurrentRound})
	s.publishState(ctx, code, "trading.closed", saved)
	s.announceEvent(ctx, "round.close",
		fmt.Sprintf("%s: round %d closed", code, saved.Game.CurrentRound),
		"Trading is off. Waiting for the moderator.")
	return saved, nil
}

// AdvanceRound moves the game into the next round's lobby.
func (s *GameService) AdvanceRound(ctx context.Context, code string) (domain.Snapshot, error) {
	saved, err := s.withGame(ctx, code, func(snap domain.Snapshot) (domain.Snapshot, error) {
		return engine.AdvanceRound(snap)
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.auditLog(ctx, code, "round.advance", map[string]any{"round": saved.Game.CurrentRound})
	s.publishState(ctx, code, "round.advanced", saved)
	return saved, nil
}

// Finalize ends the game and, when an archiver is configured, uploads the
// finished snapshot to object storage. An archive failure is logged but
// never un-finishes the game.
func (s *GameService) Finalize(ctx context.Context, code string) (domain.Snapshot, error) {
	saved, err := s.withGame(ctx, code, func(snap domain.Snapshot) (domain.Snapshot, error) {
		return engine.Finalize(snap)
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.auditLog(ctx, code, "game.finalize", map[string]any{
		"rounds": saved.Game.RoundsTotal,
		"teams":  len(saved.Teams),
		"orders": len(saved.Orders),
	})
	s.publishState(ctx, code, "game.finished", saved)
	s.announceEvent(ctx, "game.finalize",
		fmt.Sprintf("%s: game over", code),
		"Final ranking is up. Thanks for playing!")

	if s.archiver != nil {
		path, err := s.archiver.ArchiveGame(ctx, saved)
		if err != nil {
			s.logger.Error("archive finished game", "game", code, "error", err)
		} else {
			s.logger.Info("archived finished game", "game", code, "path", path)
		}
	}
	return saved, nil
}

// Leaderboard marks every team to market against a round's published mid
// prices. Round 0 means the current round.
func (s *GameService) Leaderboard(ctx context.Context, code string, round int) ([]engine.Standing, error) {
	snap, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if round <= 0 {
		round = snap.Game.CurrentRound
	}
	return engine.Leaderboard(snap, round), nil
}

// FinalRanking returns the end-of-game ranking by return over initial
// cash.
func (s *GameService) FinalRanking(ctx context.Context, code string) ([]engine.FinalStanding, error) {
	snap, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return engine.FinalRanking(snap), nil
}

// TeamView is the team-facing account summary.
type TeamView struct {
	TeamID         string           `json:"team_id"`
	TeamName       string           `json:"team_name"`
	Round          int              `json:"round"`
	Cash           float64          `json:"cash"`
	Positions      map[string]int64 `json:"positions"`
	PositionValue  float64          `json:"position_value"`
	PortfolioValue float64          `json:"portfolio_value"`
}

// TeamView replays a team's ledger and marks its positions against the
// current round's mid prices. Teams poll this between trades, so mids come
// from the quote cache when possible.
func (s *GameService) TeamView(ctx context.Context, code, teamName string) (TeamView, error) {
	snap, err := s.Get(ctx, code)
	if err != nil {
		return TeamView{}, err
	}

	team, ok := snap.TeamByName(teamName)
	if !ok {
		return TeamView{}, fmt.Errorf("game_service: team %q: %w", teamName, domain.ErrNotFound)
	}

	positions, cash := engine.TeamState(snap, team.ID)
	mids := s.roundMids(ctx, snap)

	posValue := 0.0
	for bondID, qty := range positions {
		posValue += float64(qty) * mids[bondID]
	}

	return TeamView{
		TeamID:         team.ID,
		TeamName:       team.Name,
		Round:          snap.Game.CurrentRound,
		Cash:           cash,
		Positions:      positions,
		PositionValue:  posValue,
		PortfolioValue: cash + posValue,
	}, nil
}

// roundMids returns the current round's mid prices, preferring the quote
// cache and backfilling it on a miss.
func (s *GameService) roundMids(ctx context.Context, snap domain.Snapshot) map[string]float64 {
	code := snap.Game.Code
	round := snap.Game.CurrentRound

	mids, err := s.quotes.GetMids(ctx, code, round)
	if err == nil {
		return mids
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("read cached mids", "game", code, "round", round, "error", err)
	}

	mids = snap.MidPrices(round)
	if len(mids) > 0 {
		if err := s.quotes.SetMids(ctx, code, round, mids); err != nil {
			s.logger.Warn("backfill cached mids", "game", code, "round", round, "error", err)
		}
	}
	return mids
}

// publishState emits a game-channel event carrying the round and state.
func (s *GameService) publishState(ctx context.Context, code, kind string, snap domain.Snapshot) {
	publishEvent(ctx, s.bus, s.logger, ChannelGame, code, kind, map[string]any{
		"round": snap.Game.CurrentRound,
		"state": snap.Game.State,
	})
}

// auditLog records an audit entry, logging rather than failing on error.
func (s *GameService) auditLog(ctx context.Context, code, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, code, event, detail); err != nil {
		s.logger.Warn("audit log", "game", code, "event", event, "error", err)
	}
}
