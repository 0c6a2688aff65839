package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/live-odds-sync/internal/oddsstore"
	"github.com/radieske/live-odds-sync/internal/stream"
	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

type fakeRepo struct {
	mu      sync.Mutex
	matches []events.Match
	odds    []events.Odds
	err     error
}

func (f *fakeRepo) FetchMatches(ctx context.Context) ([]events.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeRepo) FetchOdds(ctx context.Context) ([]events.Odds, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.odds, nil
}

func (f *fakeRepo) set(m []events.Match, o []events.Odds, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches, f.odds, f.err = m, o, err
}

type fakeStreamer struct {
	updates      chan events.OddsUpdate
	states       chan stream.ConnectionState
	disconnected int
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{
		updates: make(chan events.OddsUpdate, 16),
		states:  make(chan stream.ConnectionState, 16),
	}
}

func (f *fakeStreamer) Updates() <-chan events.OddsUpdate     { return f.updates }
func (f *fakeStreamer) States() <-chan stream.ConnectionState { return f.states }
func (f *fakeStreamer) SimulateDisconnection()                { f.disconnected++ }

func ptr(v float64) *float64 { return &v }

func hourAgo() time.Time   { return time.Now().Add(-time.Hour) }
func inOneHour() time.Time { return time.Now().Add(time.Hour) }

func newTestEngine(repo Repo) *Engine {
	e := New(repo, oddsstore.New(), newFakeStreamer(), zap.NewNop())
	e.FlagResetDelay = 60 * time.Millisecond
	return e
}

func TestLoadInitialDataMergesAndStores(t *testing.T) {
	repo := &fakeRepo{
		matches: []events.Match{
			{MatchID: 1, TeamA: "Flamengo", TeamB: "Palmeiras", StartTime: inOneHour()},
			{MatchID: 2, TeamA: "Grêmio", TeamB: "Internacional", StartTime: inOneHour()},
		},
		odds: []events.Odds{
			{MatchID: 1, TeamAOdds: 1.50, TeamBOdds: 2.50, DrawOdds: ptr(3.00)},
			{MatchID: 2, TeamAOdds: 2.10, TeamBOdds: 1.80, DrawOdds: ptr(3.40)},
		},
	}
	e := newTestEngine(repo)
	defer e.Close()

	if err := e.LoadInitialData(context.Background()); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	rows := e.Rows()
	if len(rows) != 2 {
		t.Fatalf("esperava 2 linhas, veio %d", len(rows))
	}
	for _, r := range rows {
		if r.TeamAOddsChanged || r.TeamBOddsChanged || r.DrawOddsChanged {
			t.Fatalf("linha nova não tem flag de mudança: %+v", r)
		}
	}
	if e.IsLoading() {
		t.Fatal("loading deveria voltar a false")
	}
	if _, ok := e.store.Get(1); !ok {
		t.Fatal("odds deveriam ter ido pro store")
	}
}

// partida sem odds nunca entra na sequência
func TestMatchWithoutOddsIsExcluded(t *testing.T) {
	repo := &fakeRepo{
		matches: []events.Match{
			{MatchID: 1, TeamA: "Corinthians", TeamB: "Santos", StartTime: inOneHour()},
			{MatchID: 99, TeamA: "São Paulo", TeamB: "Vasco", StartTime: inOneHour()},
		},
		odds: []events.Odds{{MatchID: 1, TeamAOdds: 1.90, TeamBOdds: 1.90}},
	}
	e := newTestEngine(repo)
	defer e.Close()

	_ = e.LoadInitialData(context.Background())

	rows := e.Rows()
	if len(rows) != 1 || rows[0].Match.MatchID != 1 {
		t.Fatalf("partida 99 não tem odds e não podia aparecer: %+v", rows)
	}
}

func TestMergeIdempotent(t *testing.T) {
	repo := &fakeRepo{
		matches: []events.Match{
			{MatchID: 1, TeamA: "A", TeamB: "B", StartTime: inOneHour()},
			{MatchID: 2, TeamA: "C", TeamB: "D", StartTime: hourAgo(), IsLive: true},
		},
		odds: []events.Odds{
			{MatchID: 1, TeamAOdds: 1.50, TeamBOdds: 2.50},
			{MatchID: 2, TeamAOdds: 2.00, TeamBOdds: 2.00},
		},
	}
	e := newTestEngine(repo)
	defer e.Close()

	_ = e.LoadInitialData(context.Background())
	first := e.Rows()
	_ = e.LoadInitialData(context.Background())
	second := e.Rows()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("merge duplo sem update no meio tem que ser idêntico:\n%+v\n%+v", first, second)
	}
	for _, r := range second {
		if r.TeamAOddsChanged || r.TeamBOddsChanged || r.DrawOddsChanged {
			t.Fatalf("sem mudança de valor não há flag: %+v", r)
		}
	}
}

// ao vivo que começou há 1h vem antes de não-ao-vivo que começa em 1h;
// dois ao vivo ordenam por início ascendente
func TestSortLiveFirstThenStartTime(t *testing.T) {
	live1 := time.Now().Add(-90 * time.Minute)
	live2 := time.Now().Add(-30 * time.Minute)
	repo := &fakeRepo{
		matches: []events.Match{
			{MatchID: 1, TeamA: "A", TeamB: "B", StartTime: inOneHour()},
			{MatchID: 2, TeamA: "C", TeamB: "D", StartTime: live2, IsLive: true},
			{MatchID: 3, TeamA: "E", TeamB: "F", StartTime: live1, IsLive: true},
		},
		odds: []events.Odds{
			{MatchID: 1, TeamAOdds: 1.5, TeamBOdds: 2.5},
			{MatchID: 2, TeamAOdds: 1.5, TeamBOdds: 2.5},
			{MatchID: 3, TeamAOdds: 1.5, TeamBOdds: 2.5},
		},
	}
	e := newTestEngine(repo)
	defer e.Close()

	_ = e.LoadInitialData(context.Background())

	rows := e.Rows()
	got := []int{rows[0].Match.MatchID, rows[1].Match.MatchID, rows[2].Match.MatchID}
	want := []int{3, 2, 1} // ao vivo mais antigo, ao vivo mais novo, futuro
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ordem = %v, esperava %v", got, want)
	}
}

func TestLoadFailureKeepsPreviousRows(t *testing.T) {
	repo := &fakeRepo{
		matches: []events.Match{{MatchID: 1, TeamA: "A", TeamB: "B", StartTime: inOneHour()}},
		odds:    []events.Odds{{MatchID: 1, TeamAOdds: 1.5, TeamBOdds: 2.5}},
	}
	e := newTestEngine(repo)
	defer e.Close()

	_ = e.LoadInitialData(context.Background())
	if len(e.Rows()) != 1 {
		t.Fatal("carga inicial deveria ter 1 linha")
	}

	boom := errors.New("backend fora")
	repo.set(nil, nil, boom)
	if err := e.LoadInitialData(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("erro deveria propagar, veio %v", err)
	}
	if e.Err() == nil || e.IsLoading() {
		t.Fatal("falha expõe o erro com loading=false")
	}
	if len(e.Rows()) != 1 {
		t.Fatal("falha nunca apaga a sequência anterior")
	}

	// retry limpa o erro
	repo.set(
		[]events.Match{{MatchID: 1, TeamA: "A", TeamB: "B", StartTime: inOneHour()}},
		[]events.Odds{{MatchID: 1, TeamAOdds: 1.5, TeamBOdds: 2.5}},
		nil,
	)
	if err := e.LoadInitialData(context.Background()); err != nil {
		t.Fatalf("retry deveria passar: %v", err)
	}
	if e.Err() != nil {
		t.Fatal("sucesso limpa o erro")
	}
}

// (1.50, 2.50, 3.00) -> (1.50, 2.60, 3.00): só TeamBOddsChanged
func TestPerFieldChangeFlags(t *testing.T) {
	repo := &fakeRepo{
		matches: []events.Match{{MatchID: 1, TeamA: "A", TeamB: "B", StartTime: inOneHour()}},
		odds:    []events.Odds{{MatchID: 1, TeamAOdds: 1.50, TeamBOdds: 2.50, DrawOdds: ptr(3.00)}},
	}
	e := newTestEngine(repo)
	defer e.Close()

	_ = e.LoadInitialData(context.Background())

	e.HandleOddsUpdate(events.OddsUpdate{
		MatchID: 1, TeamAOdds: 1.50, TeamBOdds: 2.60, DrawOdds: ptr(3.00),
		Timestamp: time.Now(),
	})

	r := e.Rows()[0]
	if r.TeamAOddsChanged || !r.TeamBOddsChanged || r.DrawOddsChanged {
		t.Fatalf("só teamB mudou: %+v", r)
	}
	if r.Odds.TeamBOdds != 2.60 {
		t.Fatalf("patch in place não aplicou o valor: %+v", r.Odds)
	}
	if got, _ := e.store.Get(1); got.TeamBOdds != 2.60 {
		t.Fatal("update tem que passar pelo store")
	}
}

func TestFlagsResetAfterDelay(t *testing.T) {
	repo := &fakeRepo{
		matches: []events.Match{{MatchID: 1, TeamA: "A", TeamB: "B", StartTime: inOneHour()}},
		odds:    []events.Odds{{MatchID: 1, TeamAOdds: 1.50, TeamBOdds: 2.50}},
	}
	e := newTestEngine(repo)
	defer e.Close()

	_ = e.LoadInitialData(context.Background())
	e.HandleOddsUpdate(events.OddsUpdate{MatchID: 1, TeamAOdds: 1.60, TeamBOdds: 2.50})

	if !e.Rows()[0].TeamAOddsChanged {
		t.Fatal("flag deveria estar ligada logo após o update")
	}

	time.Sleep(150 * time.Millisecond)
	r := e.Rows()[0]
	if r.TeamAOddsChanged || r.TeamBOddsChanged || r.DrawOddsChanged {
		t.Fatalf("flags deveriam ter zerado após a janela: %+v", r)
	}
}

func TestInterveningUpdateRestartsWindow(t *testing.T) {
	repo := &fakeRepo{
		matches: []events.Match{{MatchID: 1, TeamA: "A", TeamB: "B", StartTime: inOneHour()}},
		odds:    []events.Odds{{MatchID: 1, TeamAOdds: 1.50, TeamBOdds: 2.50}},
	}
	e := newTestEngine(repo)
	e.FlagResetDelay = 120 * time.Millisecond
	defer e.Close()

	_ = e.LoadInitialData(context.Background())
	e.HandleOddsUpdate(events.OddsUpdate{MatchID: 1, TeamAOdds: 1.60, TeamBOdds: 2.50})

	time.Sleep(60 * time.Millisecond)
	e.HandleOddsUpdate(events.OddsUpdate{MatchID: 1, TeamAOdds: 1.70, TeamBOdds: 2.50})

	// 150ms após o primeiro update a janela original já teria vencido,
	// mas o segundo update reabriu
	time.Sleep(90 * time.Millisecond)
	if !e.Rows()[0].TeamAOddsChanged {
		t.Fatal("update no meio da janela reinicia o prazo")
	}

	time.Sleep(120 * time.Millisecond)
	if e.Rows()[0].TeamAOddsChanged {
		t.Fatal("flag deveria zerar após a segunda janela completa")
	}
}

// update de partida fora da sequência cai no merge completo
func TestUnknownMatchFallsBackToFullMerge(t *testing.T) {
	repo := &fakeRepo{
		matches: []events.Match{
			{MatchID: 1, TeamA: "A", TeamB: "B", StartTime: inOneHour()},
			{MatchID: 2, TeamA: "C", TeamB: "D", StartTime: hourAgo(), IsLive: true},
		},
		odds: []events.Odds{{MatchID: 1, TeamAOdds: 1.50, TeamBOdds: 2.50}},
	}
	e := newTestEngine(repo)
	defer e.Close()

	_ = e.LoadInitialData(context.Background())
	if len(e.Rows()) != 1 {
		t.Fatal("partida 2 ainda não tem odds")
	}

	e.HandleOddsUpdate(events.OddsUpdate{MatchID: 2, TeamAOdds: 2.00, TeamBOdds: 2.00})

	rows := e.Rows()
	if len(rows) != 2 {
		t.Fatalf("merge completo deveria incluir a partida 2: %+v", rows)
	}
	if rows[0].Match.MatchID != 2 {
		t.Fatalf("partida ao vivo vai pra frente no merge completo: %+v", rows)
	}
}

func TestRunConsumesStreamAndStates(t *testing.T) {
	repo := &fakeRepo{
		matches: []events.Match{{MatchID: 1, TeamA: "A", TeamB: "B", StartTime: inOneHour()}},
		odds:    []events.Odds{{MatchID: 1, TeamAOdds: 1.50, TeamBOdds: 2.50}},
	}
	fs := newFakeStreamer()
	e := New(repo, oddsstore.New(), fs, zap.NewNop())
	e.FlagResetDelay = 60 * time.Millisecond
	defer e.Close()

	_ = e.LoadInitialData(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	fs.updates <- events.OddsUpdate{MatchID: 1, TeamAOdds: 1.80, TeamBOdds: 2.50}
	fs.states <- stream.ConnectionState{Kind: stream.StateConnected}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if e.Rows()[0].Odds.TeamAOdds == 1.80 && e.ConnState().Kind == stream.StateConnected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("engine não consumiu o stream: %+v %v", e.Rows()[0], e.ConnState())
}

func TestToggleAnimationsAndSimulateDisconnection(t *testing.T) {
	fs := newFakeStreamer()
	e := New(&fakeRepo{}, oddsstore.New(), fs, zap.NewNop())
	defer e.Close()

	if e.ToggleAnimations() {
		t.Fatal("primeiro toggle desliga (default ligado)")
	}
	if !e.ToggleAnimations() {
		t.Fatal("segundo toggle religa")
	}

	e.SimulateDisconnection()
	if fs.disconnected != 1 {
		t.Fatal("SimulateDisconnection é repasse pro stream manager")
	}
}
