package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/misionbonos/bondgame/internal/domain"
	"github.com/misionbonos/bondgame/internal/engine"
)

// TeamService handles team registration and PIN verification. PINs are
// optional: a team registered without one can be rejoined by name alone.
type TeamService struct {
	games  *GameService
	logger *slog.Logger
}

// NewTeamService creates a TeamService on top of the game service's
// load-mutate-save machinery.
func NewTeamService(games *GameService, logger *slog.Logger) *TeamService {
	return &TeamService{games: games, logger: logger}
}

// Register adds a team to the game with the configured starting cash.
// Names are unique per game; a non-empty PIN is stored as a bcrypt hash.
func (s *TeamService) Register(ctx context.Context, code, name, pin string) (domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Team{}, fmt.Errorf("team_service: empty team name: %w", domain.ErrInvalidOrder)
	}

	pinHash := ""
	if pin != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return domain.Team{}, fmt.Errorf("team_service: hash pin: %w", err)
		}
		pinHash = string(hash)
	}

	var team domain.Team
	_, err := s.games.withGame(ctx, code, func(snap domain.Snapshot) (domain.Snapshot, error) {
		next, t, err := engine.RegisterTeam(snap, name, pinHash, s.games.now().UTC())
		team = t
		return next, err
	})
	if err != nil {
		return domain.Team{}, err
	}

	s.games.auditLog(ctx, code, "team.register", map[string]any{
		"team_id": team.ID,
		"name":    team.Name,
	})
	publishEvent(ctx, s.games.bus, s.logger, ChannelGame, code, "team.registered", map[string]any{
		"team_id": team.ID,
		"name":    team.Name,
	})
	return team, nil
}

// Login verifies a team's PIN for rejoining a game. Teams registered
// without a PIN accept any value.
func (s *TeamService) Login(ctx context.Context, code, name, pin string) (domain.Team, error) {
	snap, err := s.games.Get(ctx, code)
	if err != nil {
		return domain.Team{}, err
	}

	team, ok := snap.TeamByName(strings.TrimSpace(name))
	if !ok {
		return domain.Team{}, fmt.Errorf("team_service: team %q: %w", name, domain.ErrNotFound)
	}

	if team.PINHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(team.PINHash), []byte(pin)); err != nil {
			return domain.Team{}, fmt.Errorf("team_service: login %q: %w", name, domain.ErrInvalidPIN)
		}
	}

	s.games.auditLog(ctx, code, "team.login", map[string]any{"team_id": team.ID})
	return team, nil
}
