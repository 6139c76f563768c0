// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: свёртка журнала событий
// и снятие брошенных партий блэкджека.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"melbot/internal/common"
	"melbot/internal/features/ledger"
)

// Aggregator сворачивает старые события в итоги.
type Aggregator interface {
	Run(ctx context.Context) (ledger.FoldResult, error)
}

// Sweeper снимает партии, брошенные дольше таймаута.
type Sweeper interface {
	SweepExpired(ctx context.Context) int
}

// Schedule - расписания в синтаксисе cron ("@every 10m", "0 4 * * *").
type Schedule struct {
	Aggregation string
	Sweep       string
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron       *cron.Cron
	aggregator Aggregator
	sweeper    Sweeper
	schedule   Schedule
}

// NewScheduler создаёт планировщик. Задача не стартует, пока не закончилась
// её предыдущая итерация.
func NewScheduler(aggregator Aggregator, sweeper Sweeper, schedule Schedule, loc *time.Location) *Scheduler {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger()))),
	)
	return &Scheduler{
		cron:       c,
		aggregator: aggregator,
		sweeper:    sweeper,
		schedule:   schedule,
	}
}

// Start регистрирует задачи и запускает планировщик.
// ctx отменяется на shutdown: незавершённая свёртка откатывается целиком.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule.Aggregation, func() { s.runAggregation(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание свёртки %q: %w", s.schedule.Aggregation, err)
	}
	if _, err := s.cron.AddFunc(s.schedule.Sweep, func() { s.runSweep(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание чистки партий %q: %w", s.schedule.Sweep, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"aggregation": s.schedule.Aggregation,
		"sweep":       s.schedule.Sweep,
	}).Info("Планировщик задач запущен")
	return nil
}

func (s *Scheduler) runAggregation(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Info("[CRON] Свёртка журнала событий")
	res, err := s.aggregator.Run(ctx)
	switch {
	case errors.Is(err, common.ErrAggregationBusy):
		log.Warn("[CRON] Свёртка уже идёт, пропускаем")
	case err != nil:
		log.WithError(err).Error("[CRON] Ошибка свёртки, повторим по расписанию")
	default:
		log.WithFields(log.Fields{"users": res.Users, "events": res.Events}).Info("[CRON] Свёртка завершена")
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Debug("[CRON] Проверка брошенных партий")
	s.sweeper.SweepExpired(ctx)
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
