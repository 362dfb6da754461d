package accounting

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatCurrency renders an amount as US dollars with thousands grouping, e.g. "$1,000.00".
// Cents are rounded half away from zero.
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	fixed := rounded.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + "$" + groupThousands(intPart) + "." + frac
}

func groupThousands(digits string) string {
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return message.NewPrinter(language.English).Sprintf("%d", n)
	}
	// Beyond int64; group by hand.
	var b strings.Builder
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
