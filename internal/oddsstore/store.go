package oddsstore

import (
	"sync"

	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// Store guarda o snapshot de odds mais recente por partida.
// Fonte única da verdade para "odds atuais": o merge lê daqui e o
// handler do stream escreve aqui, nunca por fora da API.
// Escritas são last-write-wins por chave.
type Store struct {
	mu   sync.RWMutex
	odds map[int]events.Odds
}

func New() *Store {
	return &Store{odds: make(map[int]events.Odds)}
}

// Update insere ou substitui a odd da partida
func (s *Store) Update(o events.Odds) {
	s.mu.Lock()
	s.odds[o.MatchID] = o
	s.mu.Unlock()
}

// Get retorna a odd atual da partida, se existir
func (s *Store) Get(matchID int) (events.Odds, bool) {
	s.mu.RLock()
	o, ok := s.odds[matchID]
	s.mu.RUnlock()
	return o, ok
}

// All retorna uma cópia do conteúdo no instante da chamada.
// A seção crítica é só a cópia; escritores não ficam bloqueados
// enquanto o chamador itera o resultado.
func (s *Store) All() []events.Odds {
	s.mu.RLock()
	out := make([]events.Odds, 0, len(s.odds))
	for _, o := range s.odds {
		out = append(out, o)
	}
	s.mu.RUnlock()
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.odds)
}
