package stream

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

const backoffCapUnits = 32

// Manager é a máquina de estados de conexão do stream de odds.
//
//	Disconnected -> Start -> Connecting -> Connected
//	Connected -> queda -> Disconnected -> Reconnecting(n) -> Connecting ...
//
// A espera entre tentativas é min(2^n, 32) * BackoffUnit. Depois de
// MaxReconnectAttempts falhas consecutivas o stream desiste e assenta em
// Disconnected até o próximo Start. O contador zera só em conexão
// bem-sucedida. Falha de conexão individual nunca vira erro pro chamador:
// só transições de estado são observáveis.
type Manager struct {
	connector Connector
	log       *zap.Logger

	// MaxReconnectAttempts limita tentativas consecutivas (default 5)
	MaxReconnectAttempts int
	// BackoffUnit é a unidade de tempo do backoff (default 1s; testes encurtam)
	BackoffUnit time.Duration

	// Callbacks de métricas; nil desliga
	OnStateChange func(ConnectionState)
	OnUpdate      func()

	updates chan events.OddsUpdate
	states  chan ConnectionState

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	state   ConnectionState
	sess    Session // sessão ativa, se houver
}

func NewManager(connector Connector, log *zap.Logger) *Manager {
	return &Manager{
		connector:            connector,
		log:                  log,
		MaxReconnectAttempts: 5,
		BackoffUnit:          time.Second,
		updates:              make(chan events.OddsUpdate, 64),
		states:               make(chan ConnectionState, 16),
	}
}

// Updates é o canal de eventos; nunca sinaliza falha
func (m *Manager) Updates() <-chan events.OddsUpdate { return m.updates }

// States é o canal de transições de estado da conexão
func (m *Manager) States() <-chan ConnectionState { return m.states }

// State devolve o estado corrente
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start liga o loop de conexão. No-op se já estiver rodando.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(runCtx)
}

// Stop desliga o auto-reconnect, derruba a sessão ativa e cancela
// qualquer timer de backoff pendente. Terminal até o próximo Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	sess := m.sess
	m.cancel = nil
	m.sess = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sess != nil {
		sess.Close()
	}
}

// SimulateDisconnection derruba a sessão ativa sem desligar o
// auto-reconnect: o loop trata como queda externa
func (m *Manager) SimulateDisconnection() {
	m.mu.Lock()
	sess := m.sess
	m.mu.Unlock()

	if sess != nil {
		m.log.Info("simulating stream disconnection")
		sess.Close()
	}
}

func (m *Manager) run(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	attempt := 0
	for {
		m.setState(ConnectionState{Kind: StateConnecting})

		sess, err := m.connector.Connect(ctx)
		if err == nil {
			attempt = 0 // zera só em conexão bem-sucedida
			m.mu.Lock()
			m.sess = sess
			m.mu.Unlock()
			m.setState(ConnectionState{Kind: StateConnected})
			m.log.Info("stream connected")

			m.pump(ctx, sess)

			m.mu.Lock()
			m.sess = nil
			m.mu.Unlock()
			sess.Close()

			if ctx.Err() != nil {
				m.setState(ConnectionState{Kind: StateDisconnected})
				return
			}
			// queda externa: desconecta e parte pra reconexão
			m.setState(ConnectionState{Kind: StateDisconnected})
		} else {
			if ctx.Err() != nil {
				m.setState(ConnectionState{Kind: StateDisconnected})
				return
			}
			m.log.Warn("stream connect failed", zap.Error(err))
		}

		attempt++
		if attempt > m.MaxReconnectAttempts {
			m.log.Warn("giving up on reconnection",
				zap.Int("attempts", m.MaxReconnectAttempts),
			)
			m.setState(ConnectionState{Kind: StateDisconnected})
			return
		}

		m.setState(ConnectionState{Kind: StateReconnecting, Attempt: attempt})
		timer := time.NewTimer(m.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			m.setState(ConnectionState{Kind: StateDisconnected})
			return
		case <-timer.C:
		}
	}
}

// pump drena a sessão até ela cair ou o ctx encerrar
func (m *Manager) pump(ctx context.Context, sess Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-sess.Updates():
			if !ok {
				return
			}
			if m.OnUpdate != nil {
				m.OnUpdate()
			}
			select {
			case m.updates <- u:
			case <-ctx.Done():
				return
			}
		case err := <-sess.Done():
			if err != nil {
				m.log.Warn("stream session dropped", zap.Error(err))
			}
			return
		}
	}
}

// backoff calcula min(2^n, 32) unidades
func (m *Manager) backoff(attempt int) time.Duration {
	units := 1 << attempt
	if attempt >= 5 || units > backoffCapUnits {
		units = backoffCapUnits
	}
	return time.Duration(units) * m.BackoffUnit
}

// setState publica a transição no canal (sem bloquear) e na callback
func (m *Manager) setState(s ConnectionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()

	select {
	case m.states <- s:
	default:
		// consumidor atrasado: estado corrente continua via State()
	}
	if m.OnStateChange != nil {
		m.OnStateChange(s)
	}
}
