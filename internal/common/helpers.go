// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм и времени.
package common

import (
	"fmt"
	"strconv"
	"time"
)

// Pluralize выбирает форму слова для числа n по правилам русского языка.
//
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func Pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizePoints возвращает правильную форму слова «очко».
//
//	PluralizePoints(1)  → "очко"
//	PluralizePoints(3)  → "очка"
//	PluralizePoints(11) → "очков"
func PluralizePoints(n int64) string {
	return Pluralize(n, "очко", "очка", "очков")
}

// PluralizePulls возвращает правильную форму слова «крутка».
func PluralizePulls(n int64) string {
	return Pluralize(n, "крутка", "крутки", "круток")
}

// FormatBalance форматирует баланс: FormatBalance(150) → "150 очков"
func FormatBalance(balance int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(balance), PluralizePoints(balance))
}

// UserKey переводит Telegram ID в ключ пользователя для леджера.
func UserKey(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10)
}

// FormatDateTime форматирует время как "02.01.2006 15:04" в заданном поясе.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
