package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Amounts must carry a decimal part: "$5" is not recognised.
var (
	amountRe       = regexp.MustCompile(`\$(\d+\.\d+)`)
	strictAmountRe = regexp.MustCompile(`^\$\d+\.\d+$`)
)

// ExtractRate returns the dollar amount in a rateApplied value such as "$25.00/hr".
func ExtractRate(text string) float64 {
	return extractAmount(text)
}

// ExtractPayout returns the dollar amount in a payout value such as "$56.25".
func ExtractPayout(text string) float64 {
	return extractAmount(text)
}

// ExtractAmountWith applies policy to a rate or payout value. Under Strict
// the value must be "-" or exactly one "$<digits>.<digits>" token, with an
// optional "/hr" suffix.
func ExtractAmountWith(text string, policy ParsePolicy) (float64, error) {
	if policy == Strict {
		t := strings.TrimSuffix(strings.TrimSpace(text), "/hr")
		if t != EmptyMarker && !strictAmountRe.MatchString(t) {
			return 0, fmt.Errorf("%w: amount %q", ErrMalformedField, text)
		}
	}
	return extractAmount(text), nil
}

func extractAmount(text string) float64 {
	if text == EmptyMarker {
		return 0
	}
	m := amountRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatMoney renders a dollar amount with two decimals, e.g. "$56.25".
func FormatMoney(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// FormatHours renders hours with one decimal, e.g. "7.5h".
func FormatHours(hours float64) string {
	return fmt.Sprintf("%.1fh", hours)
}

// FormatPercent renders a trend percentage with sign, e.g. "+12.5%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%+.1f%%", p)
}
