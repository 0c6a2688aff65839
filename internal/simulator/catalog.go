package simulator

import (
	"context"
	"database/sql"
	"time"

	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// Catalog é o conjunto de partidas que o simulador serve e perturba
type Catalog struct {
	Matches []events.Match
	Odds    []events.Odds
}

func ptr[T any](v T) *T { return &v }

// StaticCatalog é o catálogo fixo usado sem Postgres configurado
func StaticCatalog(now time.Time) Catalog {
	return Catalog{
		Matches: []events.Match{
			{MatchID: 1, TeamA: "Flamengo", TeamB: "Palmeiras", StartTime: now.Add(-35 * time.Minute), IsLive: true, CurrentMinute: ptr(35), ScoreA: ptr(1), ScoreB: ptr(0)},
			{MatchID: 2, TeamA: "Grêmio", TeamB: "Internacional", StartTime: now.Add(-10 * time.Minute), IsLive: true, CurrentMinute: ptr(10), ScoreA: ptr(0), ScoreB: ptr(0)},
			{MatchID: 3, TeamA: "Corinthians", TeamB: "Santos", StartTime: now.Add(1 * time.Hour)},
			{MatchID: 4, TeamA: "São Paulo", TeamB: "Vasco", StartTime: now.Add(3 * time.Hour)},
		},
		Odds: []events.Odds{
			{MatchID: 1, TeamAOdds: 1.85, TeamBOdds: 3.60, DrawOdds: ptr(3.10)},
			{MatchID: 2, TeamAOdds: 2.40, TeamBOdds: 2.60, DrawOdds: ptr(2.95)},
			{MatchID: 3, TeamAOdds: 2.05, TeamBOdds: 3.20, DrawOdds: ptr(3.00)},
			{MatchID: 4, TeamAOdds: 1.60, TeamBOdds: 4.80, DrawOdds: ptr(3.50)},
		},
	}
}

// LoadCatalog lê o catálogo da tabela matches, com odds de abertura.
// Esquema esperado:
//
//	matches(match_id, team_a, team_b, start_time, is_live,
//	        current_minute, score_a, score_b,
//	        open_odds_a, open_odds_b, open_odds_draw)
func LoadCatalog(ctx context.Context, db *sql.DB) (Catalog, error) {
	const q = `
		SELECT match_id, team_a, team_b, start_time, is_live,
		       current_minute, score_a, score_b,
		       open_odds_a, open_odds_b, open_odds_draw
		FROM matches
		ORDER BY match_id;
	`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return Catalog{}, err
	}
	defer rows.Close()

	var c Catalog
	for rows.Next() {
		var (
			m        events.Match
			minute   sql.NullInt64
			sa, sb   sql.NullInt64
			oa, ob   float64
			drawOdds sql.NullFloat64
		)
		if err := rows.Scan(&m.MatchID, &m.TeamA, &m.TeamB, &m.StartTime, &m.IsLive,
			&minute, &sa, &sb, &oa, &ob, &drawOdds); err != nil {
			return Catalog{}, err
		}
		if minute.Valid {
			m.CurrentMinute = ptr(int(minute.Int64))
		}
		if sa.Valid {
			m.ScoreA = ptr(int(sa.Int64))
		}
		if sb.Valid {
			m.ScoreB = ptr(int(sb.Int64))
		}

		o := events.Odds{MatchID: m.MatchID, TeamAOdds: oa, TeamBOdds: ob}
		if drawOdds.Valid {
			o.DrawOdds = ptr(drawOdds.Float64)
		}

		c.Matches = append(c.Matches, m)
		c.Odds = append(c.Odds, o)
	}
	return c, rows.Err()
}
