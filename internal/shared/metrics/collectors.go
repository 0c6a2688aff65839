package metrics

import "github.com/prometheus/client_golang/prometheus"

// Coletores do sync-service. Registrados uma vez no main via MustRegisterSync.
var (
	CacheRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_cache_requests_total",
		Help: "Total de leituras atendidas pelo cache repository",
	})
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_cache_hits_total",
		Help: "Leituras atendidas sem round-trip síncrono de rede",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_cache_misses_total",
		Help: "Leituras que exigiram fetch síncrono",
	})
	BackgroundRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_cache_background_refreshes_total",
		Help: "Refreshes de cache disparados em background",
	})
	UpdatesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_stream_updates_received_total",
		Help: "Total de OddsUpdate recebidos do stream",
	})
	ConnState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_stream_connection_state",
		Help: "Estado da conexão do stream (0=disconnected 1=connecting 2=connected 3=reconnecting)",
	})
)

func MustRegisterSync() {
	prometheus.MustRegister(
		CacheRequests,
		CacheHits,
		CacheMisses,
		BackgroundRefreshes,
		UpdatesReceived,
		ConnState,
	)
}
