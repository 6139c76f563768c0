package ledger

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"melbot/internal/common"
	"melbot/internal/metrics"
)

// Aggregator периодически сворачивает старые события в points_agg.
// Проходы не пересекаются: пока идёт один, следующий сразу получает ErrAggregationBusy.
type Aggregator struct {
	repo *Repository
	lag  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

// NewAggregator создаёт агрегатор; сворачиваются события старше now-lag.
func NewAggregator(repo *Repository, lag time.Duration) *Aggregator {
	return &Aggregator{repo: repo, lag: lag, now: time.Now}
}

// Run выполняет проход с cutoff = now - lag.
func (a *Aggregator) Run(ctx context.Context) (FoldResult, error) {
	cutoff := a.now().Add(-a.lag).UTC().Unix()
	return a.AggregateBefore(ctx, cutoff)
}

// AggregateBefore сворачивает все события с timestamp < cutoff.
// Ошибка отменяет только этот проход; следующий повторит ту же свёртку.
func (a *Aggregator) AggregateBefore(ctx context.Context, cutoff int64) (FoldResult, error) {
	if !a.mu.TryLock() {
		metrics.AggregationRuns.WithLabelValues("skipped").Inc()
		return FoldResult{}, common.ErrAggregationBusy
	}
	defer a.mu.Unlock()

	started := time.Now()
	res, err := a.repo.FoldBefore(ctx, cutoff)
	if err != nil {
		metrics.AggregationRuns.WithLabelValues("failed").Inc()
		return FoldResult{}, common.Storage(err)
	}

	metrics.AggregationRuns.WithLabelValues("ok").Inc()
	metrics.AggregatedEvents.Add(float64(res.Events))
	log.WithFields(log.Fields{
		"cutoff":   cutoff,
		"users":    res.Users,
		"events":   res.Events,
		"duration": time.Since(started).String(),
	}).Info("Агрегация журнала завершена")
	return res, nil
}
