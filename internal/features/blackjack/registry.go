// Package blackjack - registry.go: активные партии в памяти, одна на пользователя.
package blackjack

import (
	"sync"
	"time"

	"melbot/internal/metrics"
)

// Session - партия в процессе. Поля руки меняются только под mu.
type Session struct {
	ID        string
	UserID    string
	ChatID    int64
	Bet       int64
	Player    []Card
	Dealer    []Card
	StartedAt time.Time

	mu   sync.Mutex
	deck *Deck
	done  bool // партия завершена и удалена из реестра
	stood bool // дилер доиграл, ждём только начисления выигрыша
}

// Registry хранит партии. Проверка "уже играет" и вставка идут под одной блокировкой.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// reserve добавляет партию, если у пользователя нет другой.
func (r *Registry) reserve(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.UserID]; ok {
		return false
	}
	r.sessions[s.UserID] = s
	metrics.BlackjackActive.Set(float64(len(r.sessions)))
	return true
}

func (r *Registry) get(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	return s, ok
}

// remove удаляет запись, только если она указывает на ту же партию.
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[s.UserID]; ok && cur == s {
		delete(r.sessions, s.UserID)
	}
	metrics.BlackjackActive.Set(float64(len(r.sessions)))
}

// expired возвращает партии старше timeout на момент now.
func (r *Registry) expired(now time.Time, timeout time.Duration) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for _, s := range r.sessions {
		if now.Sub(s.StartedAt) >= timeout {
			out = append(out, s)
		}
	}
	return out
}

// Len - число активных партий.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
