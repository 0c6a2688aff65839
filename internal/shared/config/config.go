package config

import (
	"os"
	"strconv"
	"time"

	ctopics "github.com/radieske/live-odds-sync/pkg/contracts/topics"
)

// Config centraliza variáveis de ambiente e parâmetros de execução dos serviços
// Inclui conexões, política de cache, reconexão do stream e portas
type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string // ex: "sync-service", "feed-simulator"

	// Backend de fetch (endpoints /matches e /odds)
	BackendBaseURL string
	// Feed de push (WS do backend ou do feed-simulator)
	FeedWSURL string

	// Infra opcional
	RedisAddr    string // snapshot quente do cache; vazio desliga
	PostgresDSN  string // catálogo de partidas do simulador; vazio usa catálogo fixo
	KafkaBrokers string // conector de stream alternativo via Kafka

	TopicOddsUpdates string

	// Política de frescor do cache
	ExpirationInterval       time.Duration // TTL duro
	QuickRefreshInterval     time.Duration // limiar de staleness p/ refresh em background
	MaxCacheAge              time.Duration // acima disso força refetch síncrono
	BackgroundUpdateInterval time.Duration // cadência do updater periódico

	// Stream
	MaxReconnectAttempts int
	StreamSource         string // "ws", "kafka" ou "sim"

	// Gerador do stand-in de desenvolvimento
	SimVariationPct float64 // perturbação por tick (ex.: 0.05 = ±5%)
	SimOddsMin      float64
	SimOddsMax      float64
	SimTickInterval time.Duration

	// Portas do serviço atual
	HTTPPort    string // Porta pública (só o feed-simulator expõe)
	MetricsPort string // Porta exclusiva para /metrics e /healthz
}

// Load carrega variáveis de ambiente e define defaults para cada serviço
// Resolve portas conforme o SERVICE_NAME
func Load() Config {
	svc := getEnv("SERVICE_NAME", "")
	env := getEnv("ENV", "local")

	cfg := Config{
		Env:         env,
		ServiceName: svc,

		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8081"),
		FeedWSURL:      getEnv("FEED_WS_URL", "ws://localhost:8081/ws"),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),

		TopicOddsUpdates: getEnv("KAFKA_TOPIC_ODDS", ctopics.OddsUpdates),

		ExpirationInterval:       getDuration("CACHE_EXPIRATION_INTERVAL", 300*time.Second),
		QuickRefreshInterval:     getDuration("CACHE_QUICK_REFRESH_INTERVAL", 30*time.Second),
		MaxCacheAge:              getDuration("CACHE_MAX_AGE", 600*time.Second),
		BackgroundUpdateInterval: getDuration("CACHE_BACKGROUND_UPDATE_INTERVAL", 120*time.Second),

		MaxReconnectAttempts: getInt("STREAM_MAX_RECONNECT_ATTEMPTS", 5),
		StreamSource:         getEnv("STREAM_SOURCE", "ws"),

		SimVariationPct: getFloat("SIM_VARIATION_PCT", 0.05),
		SimOddsMin:      getFloat("SIM_ODDS_MIN", 1.01),
		SimOddsMax:      getFloat("SIM_ODDS_MAX", 10.00),
		SimTickInterval: getDuration("SIM_TICK_INTERVAL", 3*time.Second),
	}

	// Define portas padrão para cada serviço
	switch svc {
	case "sync-service":
		cfg.HTTPPort = getEnv("HTTP_PORT_SYNC", "") // sync não expõe HTTP público
		cfg.MetricsPort = getEnv("METRICS_PORT_SYNC", "9095")
	case "feed-simulator":
		cfg.HTTPPort = getEnv("HTTP_PORT_FEED", "8081")
		cfg.MetricsPort = getEnv("METRICS_PORT_FEED", "9094")
	default:
		cfg.HTTPPort = getEnv("HTTP_PORT", "8081")
		cfg.MetricsPort = getEnv("METRICS_PORT", "9095")
	}

	return cfg
}

// getEnv retorna o valor da variável de ambiente ou o default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// getDuration interpreta a variável via time.ParseDuration ("30s", "2m")
func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
