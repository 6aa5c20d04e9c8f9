package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var amountReplacer = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "", " ", "")

// ParseAmount coerces a provider amount into a decimal. Empty or null
// values are zero; "(12.50)" is negative. Amounts too large for a float64
// are rejected.
func ParseAmount(raw string, null bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if null || s == "" {
		return decimal.Zero, nil
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountReplacer.Replace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("non-numeric amount %q", raw)
	}
	// Amounts feed float64 forecasting downstream.
	if f := d.InexactFloat64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, fmt.Errorf("amount out of range %q", raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
