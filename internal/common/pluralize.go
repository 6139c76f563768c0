// Package common - pluralize.go: знаковые суммы и разделители разрядов.
package common

import "fmt"

// FormatPointsAmount создаёт строку вида "+100 очков" или "-50 очков".
//
//	FormatPointsAmount(1)   → "+1 очко"
//	FormatPointsAmount(-50) → "-50 очков"
func FormatPointsAmount(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%s %s", FormatNumber(amount), PluralizePoints(amount))
	}
	return fmt.Sprintf("%s %s", FormatNumber(amount), PluralizePoints(amount))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
