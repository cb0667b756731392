package types

import "time"

// GameStatus is the provider-reported state of a game. Only finished
// results are authoritative for grading.
type GameStatus string

const (
	GameUpcoming GameStatus = "upcoming"
	GameLive     GameStatus = "live"
	GameFinished GameStatus = "finished"
)

// PeriodScore is a per-period score breakdown.
type PeriodScore struct {
	Period    int `json:"period"`
	HomeScore int `json:"homeScore"`
	AwayScore int `json:"awayScore"`
}

// GameResult is a read-only snapshot supplied by the results provider.
// The core never mutates it.
type GameResult struct {
	GameID    string        `json:"gameId"`
	League    string        `json:"league"`
	Status    GameStatus    `json:"status"`
	HomeScore int           `json:"homeScore"`
	AwayScore int           `json:"awayScore"`
	Periods   []PeriodScore `json:"periods,omitempty"`

	// Stats maps statType -> entity id -> final value, covering both
	// player props and team-level game props.
	Stats map[string]map[string]float64 `json:"stats,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Finished reports whether the result is authoritative for grading.
func (r *GameResult) Finished() bool {
	return r != nil && r.Status == GameFinished
}

// StatValue looks up the final value of a single stat for an entity.
func (r *GameResult) StatValue(statType, entityID string) (float64, bool) {
	byEntity, ok := r.Stats[statType]
	if !ok {
		return 0, false
	}
	v, ok := byEntity[entityID]
	return v, ok
}
