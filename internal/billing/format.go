package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount as "Rp 1.234" with Indonesian digit
// grouping. Cents are shown only when the amount is not whole: "Rp 1.234,50".
func FormatRupiah(amount decimal.Decimal) string {
	amount = amount.Round(MoneyPlaces)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	whole := amount.Truncate(0)
	text := rupiahPrinter.Sprintf("%d", whole.IntPart())
	if cents := amount.Sub(whole).Shift(MoneyPlaces).IntPart(); cents != 0 {
		text = fmt.Sprintf("%s,%02d", text, cents)
	}
	return "Rp " + sign + text
}
