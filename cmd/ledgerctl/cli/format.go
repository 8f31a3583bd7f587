package cli

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// printer formats amounts with digit grouping.
type printer struct {
	p *message.Printer
}

func newPrinter() printer {
	return printer{p: message.NewPrinter(language.English)}
}

// amount renders d with two fraction digits and thousands separators.
func (pr printer) amount(d decimal.Decimal) string {
	return pr.p.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// money prefixes the amount with its ISO code; unknown codes are printed as given.
func (pr printer) money(code string, d decimal.Decimal) string {
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	}
	return code + " " + pr.amount(d)
}
