// Package metrics регистрирует счётчики Prometheus, которые отдаёт /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LedgerWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melbot_ledger_writes_total",
			Help: "Записи в журнал событий по причине и результату",
		},
		[]string{"reason", "result"},
	)

	AggregationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melbot_aggregation_runs_total",
			Help: "Проходы агрегации по результату",
		},
		[]string{"result"},
	)

	AggregatedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "melbot_aggregated_events_total",
			Help: "Сколько событий свёрнуто в итоги и удалено",
		},
	)

	BlackjackActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "melbot_blackjack_active_sessions",
			Help: "Партии блэкджека в процессе",
		},
	)

	BlackjackSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melbot_blackjack_settled_total",
			Help: "Завершённые партии по исходу",
		},
		[]string{"outcome"},
	)

	GachaPulls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melbot_gacha_pulls_total",
			Help: "Крутки гачи по редкости награды",
		},
		[]string{"rarity"},
	)

	ActivityCredits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melbot_activity_messages_total",
			Help: "Сообщения в чате: начислено или отсечено кулдауном",
		},
		[]string{"result"},
	)

	ShopPurchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melbot_shop_purchases_total",
			Help: "Покупки в магазине по результату",
		},
		[]string{"result"},
	)

	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melbot_commands_total",
			Help: "Обработанные команды бота",
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(
		LedgerWrites,
		AggregationRuns,
		AggregatedEvents,
		BlackjackActive,
		BlackjackSettled,
		GachaPulls,
		ActivityCredits,
		ShopPurchases,
		Commands,
	)
}
