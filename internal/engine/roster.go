package engine

import (
	"fmt"
	"time"

	"github.com/misionbonos/bondgame/internal/domain"
)

// RegisterTeam adds a team with the game's configured starting cash. Team
// names are unique within a game; the PIN hash (possibly empty) is supplied
// by the caller so the engine stays free of credential handling.
func RegisterTeam(s domain.Snapshot, name, pinHash string, now time.Time) (domain.Snapshot, domain.Team, error) {
	if _, exists := s.TeamByName(name); exists {
		return s, domain.Team{}, fmt.Errorf("engine: register team %q: %w", name, domain.ErrAlreadyExists)
	}

	out := s.Clone()
	team := domain.Team{
		ID:          fmt.Sprintf("T%d", len(out.Teams)+1),
		Name:        name,
		PINHash:     pinHash,
		InitialCash: out.Game.InitialCash,
		Active:      true,
		CreatedAt:   now,
	}
	out.Teams = append(out.Teams, team)
	return out, team, nil
}

// UpdateGameConfig applies moderator-entered settings. Allowed only while
// the game is still in the first-round lobby with no orders on the book, so
// a mid-game change can never invalidate executed trades.
func UpdateGameConfig(s domain.Snapshot, cfg domain.Game) (domain.Snapshot, error) {
	if s.Game.State != domain.StateLobby || s.Game.CurrentRound != 1 || len(s.Orders) > 0 {
		return s, fmt.Errorf("engine: update config in state %s round %d: %w", s.Game.State, s.Game.CurrentRound, domain.ErrGameLocked)
	}

	out := s.Clone()
	out.Game.RoundsTotal = cfg.RoundsTotal
	out.Game.YearFraction = cfg.YearFraction
	out.Game.BidSpreadBps = cfg.BidSpreadBps
	out.Game.AskSpreadBps = cfg.AskSpreadBps
	out.Game.CommissionBps = cfg.CommissionBps
	out.Game.InitialCash = cfg.InitialCash
	return out, nil
}
