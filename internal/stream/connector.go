package stream

import (
	"context"

	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// Connector abre uma sessão com a fonte de updates (WS, Kafka ou simulada).
// O Manager é dono do ciclo de vida: conecta, consome e reconecta.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// Session é uma conexão ativa.
// Updates entrega eventos até a sessão cair; Done sinaliza a queda
// (com a causa, ou nil em encerramento limpo). Close é idempotente.
type Session interface {
	Updates() <-chan events.OddsUpdate
	Done() <-chan error
	Close()
}
