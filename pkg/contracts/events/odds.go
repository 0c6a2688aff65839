package events

import "time"

// Odds representa o snapshot atual de cotações de uma partida
// DrawOdds é nil para esportes sem empate
type Odds struct {
	MatchID   int      `json:"match_id"`
	TeamAOdds float64  `json:"team_a_odds"`
	TeamBOdds float64  `json:"team_b_odds"`
	DrawOdds  *float64 `json:"draw_odds,omitempty"`
}

// Evento publicado no tópico "odds_updates" e empurrado pelo feed WS.
// Não é um diff: carrega os valores completos da partida.
type OddsUpdate struct {
	MatchID   int       `json:"match_id"`
	TeamAOdds float64   `json:"team_a_odds"`
	TeamBOdds float64   `json:"team_b_odds"`
	DrawOdds  *float64  `json:"draw_odds,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToOdds converte o evento para o snapshot equivalente
func (u OddsUpdate) ToOdds() Odds {
	return Odds{
		MatchID:   u.MatchID,
		TeamAOdds: u.TeamAOdds,
		TeamBOdds: u.TeamBOdds,
		DrawOdds:  u.DrawOdds,
	}
}
