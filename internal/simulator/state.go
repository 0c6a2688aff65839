package simulator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// State guarda o catálogo e as odds correntes do simulador.
// Tick perturba um subconjunto aleatório e devolve os updates gerados;
// os endpoints /matches e /odds servem snapshots daqui.
type State struct {
	VariationPct float64 // perturbação por tick (±)
	MinOdds      float64
	MaxOdds      float64

	mu      sync.Mutex
	matches []events.Match
	current map[int]events.Odds
	order   []int // ordem estável do catálogo
	rng     *rand.Rand
}

func NewState(c Catalog, variationPct, minOdds, maxOdds float64) *State {
	s := &State{
		VariationPct: variationPct,
		MinOdds:      minOdds,
		MaxOdds:      maxOdds,
		matches:      c.Matches,
		current:      make(map[int]events.Odds, len(c.Odds)),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range c.Odds {
		s.current[o.MatchID] = o
		s.order = append(s.order, o.MatchID)
	}
	return s
}

// Matches devolve o snapshot de partidas
func (s *State) Matches() []events.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Match, len(s.matches))
	copy(out, s.matches)
	return out
}

// Odds devolve o snapshot de odds correntes na ordem do catálogo
func (s *State) Odds() []events.Odds {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Odds, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.current[id])
	}
	return out
}

// Tick perturba 1..N partidas e devolve os updates correspondentes
func (s *State) Tick() []events.OddsUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return nil
	}

	n := 1 + s.rng.Intn(len(s.order))
	perm := s.rng.Perm(len(s.order))
	out := make([]events.OddsUpdate, 0, n)

	for _, idx := range perm[:n] {
		id := s.order[idx]
		o := s.current[id]

		next := events.Odds{
			MatchID:   id,
			TeamAOdds: s.perturb(o.TeamAOdds),
			TeamBOdds: s.perturb(o.TeamBOdds),
		}
		if o.DrawOdds != nil {
			next.DrawOdds = ptr(s.perturb(*o.DrawOdds))
		}
		s.current[id] = next

		out = append(out, events.OddsUpdate{
			MatchID:   id,
			TeamAOdds: next.TeamAOdds,
			TeamBOdds: next.TeamBOdds,
			DrawOdds:  next.DrawOdds,
			Timestamp: time.Now().UTC(),
		})
	}
	return out
}

func (s *State) perturb(v float64) float64 {
	factor := 1 + (s.rng.Float64()*2-1)*s.VariationPct
	v *= factor
	if v < s.MinOdds {
		v = s.MinOdds
	}
	if v > s.MaxOdds {
		v = s.MaxOdds
	}
	return v
}
