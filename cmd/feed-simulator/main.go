package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/live-odds-sync/internal/shared/config"
	"github.com/radieske/live-odds-sync/internal/shared/db"
	skafka "github.com/radieske/live-odds-sync/internal/shared/kafka"
	"github.com/radieske/live-odds-sync/internal/shared/logger"
	"github.com/radieske/live-odds-sync/internal/simulator"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// Métricas Prometheus para monitoramento de conexões e mensagens
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	wsMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_ws_messages_sent_total",
		Help: "Total de mensagens WS enviadas",
	})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_http_requests_total",
		Help: "Requisições aos endpoints de fetch",
	}, []string{"path"})
)

// Representa uma conexão de cliente WebSocket
type clientConn struct {
	id   string
	conn *websocket.Conn
}

// Estrutura responsável por gerenciar os clientes conectados via WebSocket
// e realizar broadcast de mensagens para todos eles.
type hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		clients: make(map[string]*clientConn),
		log:     log,
	}
}

func (h *hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Envia uma mensagem para todos os clientes conectados
func (h *hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg, _ := json.Marshal(v)
	for id, c := range h.clients {
		_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
		} else {
			wsMessagesSent.Inc()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(wsConnections, wsMessagesSent, httpRequests)

	// Catálogo: Postgres quando configurado, fixo caso contrário
	catalog := simulator.StaticCatalog(time.Now().UTC())
	if cfg.PostgresDSN != "" {
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c, err := simulator.LoadCatalog(ctx, pg)
		cancel()
		if err != nil {
			log.Fatal("failed to load catalog", zap.Error(err))
		}
		if len(c.Matches) > 0 {
			catalog = c
			log.Info("catalog loaded from postgres", zap.Int("matches", len(c.Matches)))
		} else {
			log.Warn("postgres catalog empty, using static catalog")
		}
	}

	state := simulator.NewState(catalog, cfg.SimVariationPct, cfg.SimOddsMin, cfg.SimOddsMax)
	h := newHub(log)

	// Publica os mesmos updates no Kafka, se houver brokers
	var writer *skafka.Writer
	if cfg.KafkaBrokers != "" {
		writer = skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsUpdates)
		defer writer.Close()
		log.Info("kafka writer ready", zap.String("topic", cfg.TopicOddsUpdates))
	}

	// Gera e distribui odds perturbadas a cada tick
	go func() {
		ticker := time.NewTicker(cfg.SimTickInterval)
		defer ticker.Stop()
		for range ticker.C {
			for _, up := range state.Tick() {
				h.broadcast(up)
				if writer != nil {
					payload, _ := json.Marshal(up)
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					if err := skafka.WriteJSON(ctx, writer, fmt.Sprintf("%d", up.MatchID), payload); err != nil {
						log.Warn("kafka publish failed", zap.Error(err))
					}
					cancel()
				}
			}
		}
	}()

	// ==== MUX PÚBLICO: /matches, /odds e /ws
	appMux := http.NewServeMux()

	appMux.HandleFunc("/matches", func(w http.ResponseWriter, r *http.Request) {
		httpRequests.WithLabelValues("/matches").Inc()
		writeJSON(w, state.Matches())
	})

	appMux.HandleFunc("/odds", func(w http.ResponseWriter, r *http.Request) {
		httpRequests.WithLabelValues("/odds").Inc()
		writeJSON(w, state.Odds())
	})

	appMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		id := fmt.Sprintf("%d", time.Now().UnixNano())
		c := &clientConn{id: id, conn: conn}
		h.add(c)

		// Mantém a conexão viva e remove o cliente ao desconectar
		go func() {
			defer func() {
				h.remove(id)
				_ = conn.Close()
			}()
			_ = conn.SetReadDeadline(time.Time{})
			for {
				// Lê e descarta mensagens do cliente para manter o socket limpo
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	// ==== MUX DE MÉTRICAS (/healthz, /metrics)
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsMux.Handle("/metrics", promhttp.Handler())

	go func() {
		metricsAddr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("feed simulator (metrics) running",
			zap.String("addr", metricsAddr),
			zap.String("paths", "/healthz,/metrics"),
		)
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("feed simulator (public) running",
		zap.String("addr", publicAddr),
		zap.String("paths", "/matches,/odds,/ws"),
	)
	if err := http.ListenAndServe(publicAddr, appMux); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
