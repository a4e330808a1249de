package pricelist

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const centPlaces = 2

var currencySymbols = map[string]string{
	"AUD": "$",
	"NZD": "$",
	"USD": "$",
	"CAD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Round rounds an engine value half away from zero to cents.
func Round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(centPlaces)
}

// Formatter renders amounts for one currency and locale.
type Formatter struct {
	currency string
	printer  *message.Printer
}

// NewFormatter builds a Formatter. Locale must be a BCP 47 tag such as en-AU.
func NewFormatter(currency, locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &Formatter{
		currency: strings.ToUpper(strings.TrimSpace(currency)),
		printer:  message.NewPrinter(tag),
	}, nil
}

// Currency returns the ISO code the formatter prints.
func (f *Formatter) Currency() string {
	return f.currency
}

// Format renders v rounded to cents, e.g. $1,234.56.
func (f *Formatter) Format(v float64) string {
	rounded := Round(v)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}

	amount := f.printer.Sprint(number.Decimal(rounded.InexactFloat64(), number.Scale(centPlaces)))
	if symbol, ok := currencySymbols[f.currency]; ok {
		return sign + symbol + amount
	}
	return sign + f.currency + " " + amount
}
