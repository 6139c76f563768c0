// Package ledger хранит валюту бота как журнал событий: каждое изменение баланса
// - отдельная неизменяемая запись в events. Старые события периодически
// сворачиваются в points_agg, поэтому баланс = итог из points_agg + сумма живых событий.
package ledger

import "strings"

// Event - одно изменение баланса.
type Event struct {
	ID        int64  `db:"id"`
	UserID    string `db:"userid"`
	Timestamp int64  `db:"event_timestamp"` // секунды UTC
	Delta     int64  `db:"currency_change"`
	Reason    string `db:"reason"`
}

// Aggregate - свёрнутый итог пользователя. LastUpdate только растёт.
type Aggregate struct {
	UserID     string `db:"userid"`
	Total      int64  `db:"total_points"`
	LastUpdate int64  `db:"last_update"`
}

// Standing - строка лидерборда.
type Standing struct {
	UserID    string
	Username  string
	FirstName string
	Total     int64
}

// DisplayName возвращает @username, имя или ID, если пользователя нет в ростере.
func (s Standing) DisplayName() string {
	if s.Username != "" {
		return "@" + s.Username
	}
	if s.FirstName != "" {
		return s.FirstName
	}
	return "id" + s.UserID
}

// FoldResult - итог одного прохода агрегации.
type FoldResult struct {
	Users  int64 // сколько строк points_agg вставлено или обновлено
	Events int64 // сколько событий удалено из журнала
}

// Причины событий
const (
	ReasonMessage      = "message"
	ReasonGamble       = "gamble"
	ReasonGacha        = "gacha"
	ReasonBlackjackBet = "blackjack bet"
	ReasonBlackjackWin = "blackjack win"
	ReasonAdminAdd     = "admin add"
	ReasonAdminRemove  = "admin remove"

	reasonPurchasePrefix = "bought item "
)

// PurchaseReason формирует причину покупки: "bought item <name>".
func PurchaseReason(itemName string) string {
	return reasonPurchasePrefix + itemName
}

// reasonLabel сворачивает причину в метку метрики с ограниченным набором значений.
func reasonLabel(reason string) string {
	if strings.HasPrefix(reason, reasonPurchasePrefix) {
		return "purchase"
	}
	return reason
}
