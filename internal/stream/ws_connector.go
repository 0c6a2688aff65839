package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// WSConnector conecta no feed WebSocket do backend (ou do feed-simulator)
// e entrega cada mensagem decodificada como OddsUpdate.
type WSConnector struct {
	URL string
	Log *zap.Logger
}

func (c *WSConnector) Connect(ctx context.Context) (Session, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, err
	}
	c.Log.Info("connected to odds feed", zap.String("url", c.URL))

	s := &wsSession{
		conn:    conn,
		log:     c.Log,
		updates: make(chan events.OddsUpdate, 16),
		done:    make(chan error, 1),
		quit:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

type wsSession struct {
	conn    *websocket.Conn
	log     *zap.Logger
	updates chan events.OddsUpdate
	done    chan error
	quit    chan struct{}
	once    sync.Once
}

func (s *wsSession) Updates() <-chan events.OddsUpdate { return s.updates }
func (s *wsSession) Done() <-chan error                { return s.done }

func (s *wsSession) Close() {
	s.once.Do(func() {
		close(s.quit)
		_ = s.conn.Close()
	})
}

// readLoop decodifica mensagens até a conexão cair.
// Mensagem inválida é descartada com warn, não derruba a sessão.
func (s *wsSession) readLoop() {
	defer close(s.updates)
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.done <- nil
			} else {
				s.done <- err
			}
			return
		}

		var u events.OddsUpdate
		if err := json.Unmarshal(message, &u); err != nil {
			s.log.Warn("invalid feed message", zap.Error(err))
			continue
		}
		select {
		case s.updates <- u:
		case <-s.quit:
			return
		}
	}
}
