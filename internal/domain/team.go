package domain

import "time"

// Team is a registered participant group. Cash and positions are never
// stored on the team; they are derived by replaying the order log.
type Team struct {
	ID          string    `json:"team_id"`
	Name        string    `json:"team_name"`
	PINHash     string    `json:"pin_hash,omitempty"` // bcrypt; empty means no PIN
	InitialCash float64   `json:"initial_cash"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
