package domain

import "time"

// GameState is the lifecycle state of a game round cycle.
type GameState string

const (
	StateLobby      GameState = "LOBBY"
	StateTradingOn  GameState = "TRADING_ON"
	StateTradingOff GameState = "TRADING_OFF"
	StateFinished   GameState = "FIN"
)

// Game holds the moderator-controlled configuration and round state for one
// game code. It is mutated only through the engine's state-machine
// operations.
type Game struct {
	Code          string    `json:"game_code"`
	RoundsTotal   int       `json:"rounds_total"`
	CurrentRound  int       `json:"current_round"`
	State         GameState `json:"state"`
	YearFraction  float64   `json:"year_fraction"`
	BidSpreadBps  float64   `json:"bid_spread_bps"`
	AskSpreadBps  float64   `json:"ask_spread_bps"`
	CommissionBps float64   `json:"commission_bps"`
	InitialCash   float64   `json:"initial_cash"`
	CreatedAt     time.Time `json:"created_at"`
}

// RoundsElapsed returns the number of fully completed rounds, used as the
// clock input for valuation. Round 1 prices at zero elapsed time.
func (g Game) RoundsElapsed() int {
	if g.CurrentRound < 1 {
		return 0
	}
	return g.CurrentRound - 1
}
