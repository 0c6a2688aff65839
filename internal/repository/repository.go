package repository

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/live-odds-sync/internal/fetch"
	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// Options define a política de frescor do cache.
// Os quatro intervalos estão em ordem: quick < expiration < maxAge.
type Options struct {
	ExpirationInterval       time.Duration // acima disso a entrada é inválida, fetch força rede
	QuickRefreshInterval     time.Duration // acima disso serve o cache e agenda refresh
	MaxCacheAge              time.Duration // teto absoluto de idade
	BackgroundUpdateInterval time.Duration // cadência do updater periódico
}

func (o Options) withDefaults() Options {
	if o.ExpirationInterval <= 0 {
		o.ExpirationInterval = 300 * time.Second
	}
	if o.QuickRefreshInterval <= 0 {
		o.QuickRefreshInterval = 30 * time.Second
	}
	if o.MaxCacheAge <= 0 {
		o.MaxCacheAge = 600 * time.Second
	}
	if o.BackgroundUpdateInterval <= 0 {
		o.BackgroundUpdateInterval = 120 * time.Second
	}
	return o
}

// Repository serve matches e odds com cache em camadas de frescor.
// Os dois recursos compartilham uma única entrada e um único ciclo de fetch.
//
// Política avaliada a cada chamada, com age = now - fetchedAt:
//   - sem entrada, cache vazio ou age > ExpirationInterval: fetch síncrono (miss)
//   - QuickRefreshInterval < age <= ExpirationInterval: serve o cache (hit)
//     e dispara no máximo um refresh em background
//   - age <= QuickRefreshInterval: serve o cache (hit), sem refresh
//
// A tripla (matches, odds, fetchedAt) só é lida e escrita dentro do mutex;
// fetch forçado e refresh em background nunca entrelaçam escrita parcial.
type Repository struct {
	client fetch.Client
	log    *zap.Logger
	snap   *Snapshots // camada quente opcional em Redis
	opts   Options

	// WarmupDelay segura o warmup por um instante depois do boot,
	// dando tempo pro backend local subir junto (default 500ms)
	WarmupDelay time.Duration

	now func() time.Time

	mu         sync.Mutex
	matches    []events.Match
	odds       []events.Odds
	fetchedAt  time.Time
	refreshing bool // guarda explícita: no máximo um refresh em voo
	warmedUp   bool
	stats      Stats

	// Callbacks de métricas (counter++); nil desliga
	OnHit               func()
	OnMiss              func()
	OnBackgroundRefresh func()
}

// New cria o repository. snap pode ser nil (sem camada Redis).
// O warmup não roda aqui: o main chama Warmup logo após a construção
// pra não esconder goroutine em construtor.
func New(client fetch.Client, log *zap.Logger, opts Options, snap *Snapshots) *Repository {
	return &Repository{
		client:      client,
		log:         log,
		snap:        snap,
		opts:        opts.withDefaults(),
		WarmupDelay: 500 * time.Millisecond,
		now:         time.Now,
	}
}

// FetchMatches devolve a lista de partidas segundo a política de frescor
func (r *Repository) FetchMatches(ctx context.Context) ([]events.Match, error) {
	m, _, err := r.serve(ctx)
	return m, err
}

// FetchOdds devolve a lista de odds segundo a política de frescor
func (r *Repository) FetchOdds(ctx context.Context) ([]events.Odds, error) {
	_, o, err := r.serve(ctx)
	return o, err
}

// serve aplica a política de frescor e devolve cópias do conteúdo
func (r *Repository) serve(ctx context.Context) ([]events.Match, []events.Odds, error) {
	r.mu.Lock()
	r.stats.TotalRequests++

	age := r.now().Sub(r.fetchedAt)
	empty := len(r.matches) == 0 && len(r.odds) == 0

	// fetch forçado: sem entrada, vazio, acima do teto absoluto ou fora do TTL
	if r.fetchedAt.IsZero() || empty || age > r.opts.MaxCacheAge || age > r.opts.ExpirationInterval {
		r.stats.Misses++
		r.mu.Unlock()
		if r.OnMiss != nil {
			r.OnMiss()
		}

		m, o, err := r.fetchPair(ctx)
		if err != nil {
			return nil, nil, err
		}
		r.install(m, o)
		return m, o, nil
	}

	// servível: hit, com ou sem refresh em background
	r.stats.Hits++
	m := copyMatches(r.matches)
	o := copyOdds(r.odds)

	trigger := false
	if age > r.opts.QuickRefreshInterval && !r.refreshing {
		r.refreshing = true
		trigger = true
	}
	r.mu.Unlock()

	if r.OnHit != nil {
		r.OnHit()
	}
	if trigger {
		go r.backgroundRefresh("stale")
	}
	return m, o, nil
}

// fetchPair busca matches e odds concorrentemente e junta os resultados.
// Qualquer uma das falhas invalida o par inteiro.
func (r *Repository) fetchPair(ctx context.Context) ([]events.Match, []events.Odds, error) {
	var (
		wg         sync.WaitGroup
		m          []events.Match
		o          []events.Odds
		errM, errO error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		m, errM = r.client.FetchMatches(ctx)
	}()
	go func() {
		defer wg.Done()
		o, errO = r.client.FetchOdds(ctx)
	}()
	wg.Wait()

	if errM != nil {
		return nil, nil, errM
	}
	if errO != nil {
		return nil, nil, errO
	}
	return m, o, nil
}

// install substitui a tripla atomicamente e agenda o write-behind do snapshot.
// O timestamp é capturado dentro da seção crítica e nunca anda para trás:
// um fetch que terminou depois mas foi estampado antes é o dado velho, descarta.
func (r *Repository) install(m []events.Match, o []events.Odds) {
	r.mu.Lock()
	now := r.now()
	if now.Before(r.fetchedAt) {
		r.mu.Unlock()
		return
	}
	r.matches = copyMatches(m)
	r.odds = copyOdds(o)
	r.fetchedAt = now
	r.mu.Unlock()

	if r.snap != nil {
		go r.snap.Save(m, o, now)
	}
}

// backgroundRefresh repõe o cache sem bloquear leitores.
// Em falha, loga e deixa a entrada existente intocada.
func (r *Repository) backgroundRefresh(reason string) {
	defer func() {
		r.mu.Lock()
		r.refreshing = false
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	m, o, err := r.fetchPair(ctx)
	if err != nil {
		r.log.Warn("background refresh failed",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}

	r.install(m, o)
	if r.OnBackgroundRefresh != nil {
		r.OnBackgroundRefresh()
	}
	r.log.Debug("background refresh done",
		zap.String("reason", reason),
		zap.Int("matches", len(m)),
		zap.Int("odds", len(o)),
	)
}

// Warmup dispara um aquecimento best-effort em background.
// Tenta o snapshot Redis antes da rede; falha é logada, nunca propagada.
// Idempotente: segunda chamada com warmup em voo ou concluído é no-op.
func (r *Repository) Warmup() {
	r.mu.Lock()
	if r.warmedUp || r.refreshing {
		r.mu.Unlock()
		return
	}
	r.refreshing = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.refreshing = false
			r.mu.Unlock()
		}()

		time.Sleep(r.WarmupDelay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		// snapshot quente primeiro: evita rede num restart rápido
		if r.snap != nil {
			if m, o, at, ok := r.snap.Load(ctx); ok && r.now().Sub(at) <= r.opts.ExpirationInterval {
				r.mu.Lock()
				r.matches = m
				r.odds = o
				r.fetchedAt = at
				r.warmedUp = true
				r.mu.Unlock()
				r.log.Info("warmed up from redis snapshot",
					zap.Int("matches", len(m)),
					zap.Time("fetched_at", at),
				)
				return
			}
		}

		m, o, err := r.fetchPair(ctx)
		if err != nil {
			r.log.Warn("warmup fetch failed", zap.Error(err))
			return
		}

		r.install(m, o)
		r.mu.Lock()
		r.warmedUp = true
		r.mu.Unlock()
		r.log.Info("warmed up from backend",
			zap.Int("matches", len(m)),
			zap.Int("odds", len(o)),
		)
	}()
}

// HasWarmedUp informa se algum warmup já concluiu com sucesso
func (r *Repository) HasWarmedUp() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warmedUp
}

// StartBackgroundUpdates liga o updater periódico; bloqueia até o ctx encerrar.
// Cada tick respeita a mesma guarda de refresh-em-voo das leituras stale.
func (r *Repository) StartBackgroundUpdates(ctx context.Context) {
	ticker := time.NewTicker(r.opts.BackgroundUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("background updater stopped")
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.refreshing {
				r.mu.Unlock()
				continue // já tem refresh em voo, tick vira no-op
			}
			r.refreshing = true
			r.mu.Unlock()
			r.backgroundRefresh("periodic")
		}
	}
}

// RefreshCache invalida a entrada e força o par de fetches na hora.
// Erro propaga pro chamador (refresh manual é foreground).
func (r *Repository) RefreshCache(ctx context.Context) error {
	r.mu.Lock()
	r.fetchedAt = time.Time{}
	r.mu.Unlock()

	m, o, err := r.fetchPair(ctx)
	if err != nil {
		return err
	}
	r.install(m, o)
	return nil
}

// ClearCache esvazia as coleções e zera fetchedAt, warmup e estatísticas
func (r *Repository) ClearCache() {
	r.mu.Lock()
	r.matches = nil
	r.odds = nil
	r.fetchedAt = time.Time{}
	r.warmedUp = false
	r.stats = Stats{}
	r.mu.Unlock()
}

// Stats devolve uma cópia das estatísticas no instante da chamada
func (r *Repository) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func copyMatches(in []events.Match) []events.Match {
	out := make([]events.Match, len(in))
	copy(out, in)
	return out
}

func copyOdds(in []events.Odds) []events.Odds {
	out := make([]events.Odds, len(in))
	copy(out, in)
	return out
}
