// Package activity - начисление очков за сообщения в чате с кулдауном.
package activity

import (
	"sync"
	"time"
)

// Throttle помнит время последнего начисления по пользователю.
// Живёт только в памяти процесса, после рестарта кулдаун сбрасывается.
type Throttle struct {
	mu        sync.Mutex
	last      map[string]time.Time
	retention time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewThrottle запускает очистку записей старше retention.
func NewThrottle(retention time.Duration) *Throttle {
	t := &Throttle{
		last:      make(map[string]time.Time),
		retention: retention,
		stopCh:    make(chan struct{}),
	}
	go t.cleanup()
	return t
}

// Close останавливает фоновую очистку.
func (t *Throttle) Close() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// TryCredit возвращает false, если прошлое начисление было меньше cooldown назад.
// Иначе запоминает now и возвращает true.
func (t *Throttle) TryCredit(userID string, now time.Time, cooldown time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[userID]; ok && now.Sub(last) < cooldown {
		return false
	}
	t.last[userID] = now
	return true
}

// Len - число отслеживаемых пользователей.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

func (t *Throttle) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case now := <-ticker.C:
			t.prune(now)
		}
	}
}

func (t *Throttle) prune(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for userID, last := range t.last {
		if now.Sub(last) >= t.retention {
			delete(t.last, userID)
		}
	}
}
