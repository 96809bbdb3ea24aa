package cli

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// moneyFormatter renders decimal amounts for display. Amounts are rounded to
// cents here and nowhere else.
type moneyFormatter struct {
	printer *message.Printer
	unit    currency.Unit
	code    valueobject.Currency
	known   bool
}

func newMoneyFormatter(tag language.Tag, code valueobject.Currency) moneyFormatter {
	f := moneyFormatter{printer: message.NewPrinter(tag), code: code}
	if unit, err := currency.ParseISO(string(code)); err == nil {
		f.unit = unit
		f.known = true
	}
	return f
}

func (f moneyFormatter) Format(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	if !f.known {
		return rounded.StringFixed(2) + " " + string(f.code)
	}
	value, _ := rounded.Float64()
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(value)))
}
