package report

import (
	"fmt"
	"math"
	"strings"
)

// FormatCurrency renders an amount as dollars with thousands separators,
// e.g. "$1,234.50".
func FormatCurrency(amount float64) string {
	amount = finite(amount)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	cents := int64(math.Round(amount * 100))
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), frac)
}
