package events

import "time"

// Match representa uma partida retornada pelo endpoint de matches
// Registro imutável: cada fetch substitui a lista inteira, nunca altera campos
type Match struct {
	MatchID       int       `json:"match_id"`
	TeamA         string    `json:"team_a"`
	TeamB         string    `json:"team_b"`
	StartTime     time.Time `json:"start_time"`
	IsLive        bool      `json:"is_live"`
	CurrentMinute *int      `json:"current_minute,omitempty"` // só presente em partidas ao vivo
	ScoreA        *int      `json:"score_a,omitempty"`
	ScoreB        *int      `json:"score_b,omitempty"`
}
