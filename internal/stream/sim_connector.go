package stream

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/radieske/live-odds-sync/internal/simulator"
	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// SimConnector é o stand-in de desenvolvimento do feed: gera updates
// pseudo-aleatórios em processo, sem backend. A cada tick emite uma
// quantidade aleatória de updates, cada um perturbando a baseline da
// partida em ±VariationPct e grampeando no intervalo [MinOdds, MaxOdds].
// A baseline caminha junto, então as odds fazem um random walk realista.
type SimConnector struct {
	Catalog      []events.Odds // baseline por partida
	TickInterval time.Duration // default 1s
	VariationPct float64       // default 0.05 (±5%)
	MinOdds      float64       // default 1.01
	MaxOdds      float64       // default 10.00

	// FailFirst faz as N primeiras conexões falharem (instabilidade scriptada)
	FailFirst int

	mu       sync.Mutex
	connects int
	baseline map[int]events.Odds
	rng      *rand.Rand
}

var errSimConnect = errors.New("sim: connection refused")

func (c *SimConnector) Connect(ctx context.Context) (Session, error) {
	c.mu.Lock()
	c.connects++
	if c.connects <= c.FailFirst {
		c.mu.Unlock()
		return nil, errSimConnect
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.baseline == nil {
		// sem catálogo configurado, cai no estático do feed-simulator;
		// um conector sem baseline conectaria e nunca emitiria nada
		if len(c.Catalog) == 0 {
			c.Catalog = simulator.StaticCatalog(time.Now()).Odds
		}
		c.baseline = make(map[int]events.Odds, len(c.Catalog))
		for _, o := range c.Catalog {
			c.baseline[o.MatchID] = o
		}
	}
	c.mu.Unlock()

	tick := c.TickInterval
	if tick <= 0 {
		tick = time.Second
	}

	s := &simSession{
		updates: make(chan events.OddsUpdate, 16),
		done:    make(chan error, 1),
		quit:    make(chan struct{}),
	}
	go c.emitLoop(s, tick)
	return s, nil
}

func (c *SimConnector) emitLoop(s *simSession, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	defer close(s.updates)

	for {
		select {
		case <-s.quit:
			s.done <- nil
			return
		case <-ticker.C:
			for _, u := range c.nextBatch() {
				select {
				case s.updates <- u:
				case <-s.quit:
					s.done <- nil
					return
				}
			}
		}
	}
}

// nextBatch perturba um subconjunto aleatório (1..N) do catálogo
func (c *SimConnector) nextBatch() []events.OddsUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.Catalog) == 0 {
		return nil
	}

	n := 1 + c.rng.Intn(len(c.Catalog))
	out := make([]events.OddsUpdate, 0, n)
	perm := c.rng.Perm(len(c.Catalog))

	for _, idx := range perm[:n] {
		id := c.Catalog[idx].MatchID
		base := c.baseline[id]

		next := events.Odds{
			MatchID:   id,
			TeamAOdds: c.perturb(base.TeamAOdds),
			TeamBOdds: c.perturb(base.TeamBOdds),
		}
		if base.DrawOdds != nil {
			d := c.perturb(*base.DrawOdds)
			next.DrawOdds = &d
		}
		c.baseline[id] = next

		out = append(out, events.OddsUpdate{
			MatchID:   next.MatchID,
			TeamAOdds: next.TeamAOdds,
			TeamBOdds: next.TeamBOdds,
			DrawOdds:  next.DrawOdds,
			Timestamp: time.Now().UTC(),
		})
	}
	return out
}

// perturb aplica a variação e grampeia no intervalo configurado
func (c *SimConnector) perturb(v float64) float64 {
	pct := c.VariationPct
	if pct <= 0 {
		pct = 0.05
	}
	min, max := c.MinOdds, c.MaxOdds
	if min <= 0 {
		min = 1.01
	}
	if max <= 0 {
		max = 10.00
	}

	factor := 1 + (c.rng.Float64()*2-1)*pct
	v *= factor
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}

type simSession struct {
	updates chan events.OddsUpdate
	done    chan error
	quit    chan struct{}
	once    sync.Once
}

func (s *simSession) Updates() <-chan events.OddsUpdate { return s.updates }
func (s *simSession) Done() <-chan error                { return s.done }

func (s *simSession) Close() {
	s.once.Do(func() { close(s.quit) })
}
