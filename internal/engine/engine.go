package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/live-odds-sync/internal/oddsstore"
	"github.com/radieske/live-odds-sync/internal/stream"
	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// DisplayRow é a unidade pronta pra renderização: partida + odds + flags
// transitórias de mudança. Identidade por MatchID.
type DisplayRow struct {
	Match events.Match
	Odds  events.Odds

	TeamAOddsChanged bool
	TeamBOddsChanged bool
	DrawOddsChanged  bool
}

// Repo é o que o engine precisa do cache repository
type Repo interface {
	FetchMatches(ctx context.Context) ([]events.Match, error)
	FetchOdds(ctx context.Context) ([]events.Odds, error)
}

// Streamer é o que o engine precisa do stream manager
type Streamer interface {
	Updates() <-chan events.OddsUpdate
	States() <-chan stream.ConnectionState
	SimulateDisconnection()
}

// Engine é o dono da sequência de exibição: reconcilia snapshots do
// repository com o stream ao vivo. Consumidor único dos dois canais do
// manager, então patch-in-place e recomputação completa nunca entrelaçam.
type Engine struct {
	repo    Repo
	store   *oddsstore.Store
	streams Streamer
	log     *zap.Logger

	// FlagResetDelay é a janela das flags de mudança (default 300ms)
	FlagResetDelay time.Duration

	mu         sync.Mutex
	rows       []DisplayRow
	matches    []events.Match // último snapshot de partidas, base do merge
	loading    bool
	err        error
	animations bool
	connState  stream.ConnectionState
	timers     map[int]*time.Timer // reset de flag pendente por partida
	closed     bool
}

func New(repo Repo, store *oddsstore.Store, streams Streamer, log *zap.Logger) *Engine {
	return &Engine{
		repo:           repo,
		store:          store,
		streams:        streams,
		log:            log,
		FlagResetDelay: 300 * time.Millisecond,
		animations:     true,
		timers:         make(map[int]*time.Timer),
	}
}

// LoadInitialData busca matches e odds concorrentemente, alimenta o store
// e recomputa a sequência. Em falha mantém a sequência anterior e expõe o
// erro; sucesso limpa o erro (retry é só chamar de novo).
func (e *Engine) LoadInitialData(ctx context.Context) error {
	e.mu.Lock()
	e.loading = true
	e.mu.Unlock()

	var (
		wg         sync.WaitGroup
		m          []events.Match
		o          []events.Odds
		errM, errO error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		m, errM = e.repo.FetchMatches(ctx)
	}()
	go func() {
		defer wg.Done()
		o, errO = e.repo.FetchOdds(ctx)
	}()
	wg.Wait()

	err := errM
	if err == nil {
		err = errO
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false

	if err != nil {
		e.err = err
		e.log.Error("initial load failed", zap.Error(err))
		return err
	}

	for _, odds := range o {
		e.store.Update(odds)
	}
	e.matches = m
	e.err = nil
	e.mergeLocked()

	e.log.Info("initial data loaded",
		zap.Int("matches", len(m)),
		zap.Int("odds", len(o)),
		zap.Int("rows", len(e.rows)),
	)
	return nil
}

// mergeLocked recomputa a sequência inteira a partir de matches + store.
// Partida sem odds fica de fora (nunca renderiza placeholder). Flags vêm
// da comparação com a linha anterior de mesmo MatchID; linha nova não tem
// flag. Ordenação: ao vivo primeiro, empate por início ascendente.
func (e *Engine) mergeLocked() {
	prev := make(map[int]DisplayRow, len(e.rows))
	for _, r := range e.rows {
		prev[r.Match.MatchID] = r
	}

	rows := make([]DisplayRow, 0, len(e.matches))
	for _, m := range e.matches {
		o, ok := e.store.Get(m.MatchID)
		if !ok {
			continue
		}
		row := DisplayRow{Match: m, Odds: o}
		if p, had := prev[m.MatchID]; had {
			row.TeamAOddsChanged = p.Odds.TeamAOdds != o.TeamAOdds
			row.TeamBOddsChanged = p.Odds.TeamBOdds != o.TeamBOdds
			row.DrawOddsChanged = !drawEqual(p.Odds.DrawOdds, o.DrawOdds)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Match.IsLive != rows[j].Match.IsLive {
			return rows[i].Match.IsLive
		}
		return rows[i].Match.StartTime.Before(rows[j].Match.StartTime)
	})

	e.rows = rows
}

// HandleOddsUpdate aplica um delta do stream.
// Linha conhecida: patch in place campo a campo, sem re-sort (partida que
// vira ao vivo no meio do stream só sobe na próxima recarga completa;
// staleness documentada, não bug). Linha desconhecida: merge completo.
func (e *Engine) HandleOddsUpdate(u events.OddsUpdate) {
	next := u.ToOdds()
	e.store.Update(next)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	idx := -1
	for i := range e.rows {
		if e.rows[i].Match.MatchID == u.MatchID {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mergeLocked()
		return
	}

	old := e.rows[idx].Odds
	e.rows[idx].Odds = next
	e.rows[idx].TeamAOddsChanged = old.TeamAOdds != next.TeamAOdds
	e.rows[idx].TeamBOddsChanged = old.TeamBOdds != next.TeamBOdds
	e.rows[idx].DrawOddsChanged = !drawEqual(old.DrawOdds, next.DrawOdds)

	// update novo reabre a janela: cancela o reset pendente e agenda outro
	if t, ok := e.timers[u.MatchID]; ok {
		t.Stop()
	}
	id := u.MatchID
	e.timers[id] = time.AfterFunc(e.FlagResetDelay, func() {
		e.clearFlags(idx, id)
	})
}

// clearFlags zera as flags da linha, desde que o índice ainda aponte pra
// mesma partida (recarga completa pode ter rearranjado a sequência)
func (e *Engine) clearFlags(idx, matchID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	delete(e.timers, matchID)

	if idx >= len(e.rows) || e.rows[idx].Match.MatchID != matchID {
		return
	}
	e.rows[idx].TeamAOddsChanged = false
	e.rows[idx].TeamBOddsChanged = false
	e.rows[idx].DrawOddsChanged = false
}

// Run consome os canais do stream até o ctx encerrar.
// Único consumidor: serialização dos patches é garantida aqui.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-e.streams.Updates():
			e.HandleOddsUpdate(u)
		case s := <-e.streams.States():
			e.mu.Lock()
			e.connState = s
			e.mu.Unlock()
			e.log.Info("connection state", zap.Stringer("state", s))
		}
	}
}

// Close cancela todos os resets de flag pendentes.
// Depois disso nenhum timer toca mais a sequência.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
}

// Rows devolve uma cópia da sequência de exibição atual
func (e *Engine) Rows() []DisplayRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]DisplayRow, len(e.rows))
	copy(out, e.rows)
	return out
}

func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine) ConnState() stream.ConnectionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connState
}

// ToggleAnimations alterna o boolean repassado pra camada de UI
func (e *Engine) ToggleAnimations() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.animations = !e.animations
	return e.animations
}

// SimulateDisconnection repassa pro stream manager
func (e *Engine) SimulateDisconnection() {
	e.streams.SimulateDisconnection()
}

func drawEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
