package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// Snapshots persiste o último CacheEntry no Redis pra aquecer restarts.
// Camada best-effort: qualquer falha é logada e ignorada.
type Snapshots struct {
	R   *redis.Client
	TTL time.Duration
	Log *zap.Logger
}

func NewSnapshots(r *redis.Client, ttl time.Duration, log *zap.Logger) *Snapshots {
	return &Snapshots{R: r, TTL: ttl, Log: log}
}

const snapshotKey = "sync:snapshot:latest"

type snapshotEntry struct {
	Matches   []events.Match `json:"matches"`
	Odds      []events.Odds  `json:"odds"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Save grava o snapshot com TTL; chamado em goroutine de write-behind
func (s *Snapshots) Save(m []events.Match, o []events.Odds, fetchedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	b, err := json.Marshal(snapshotEntry{Matches: m, Odds: o, FetchedAt: fetchedAt})
	if err != nil {
		s.Log.Warn("snapshot marshal failed", zap.Error(err))
		return
	}
	if err := s.R.Set(ctx, snapshotKey, b, s.TTL).Err(); err != nil {
		s.Log.Warn("snapshot save failed", zap.Error(err))
	}
}

// Load recupera o snapshot, se houver. ok=false cobre ausência e falha.
func (s *Snapshots) Load(ctx context.Context) ([]events.Match, []events.Odds, time.Time, bool) {
	b, err := s.R.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil, time.Time{}, false
	}
	if err != nil {
		s.Log.Warn("snapshot load failed", zap.Error(err))
		return nil, nil, time.Time{}, false
	}

	var e snapshotEntry
	if err := json.Unmarshal(b, &e); err != nil {
		s.Log.Warn("snapshot unmarshal failed", zap.Error(err))
		return nil, nil, time.Time{}, false
	}
	return e.Matches, e.Odds, e.FetchedAt, true
}
