package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatPaise renders a paise amount as rupees with Indian digit
// grouping, e.g. 123456789 -> ₹12,34,567.89.
func FormatPaise(paise int64) string {
	rupees := decimal.NewFromInt(paise).Div(decimal.NewFromInt(100))
	return "₹" + FormatIndianNumber(rupees, 2)
}

// FormatIndianNumber groups the integer part Indian style: the last three
// digits stand alone, the rest group in twos (12,34,567).
func FormatIndianNumber(d decimal.Decimal, decimals int32) string {
	s := d.StringFixed(decimals)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	if len(intPart) > 3 {
		last := intPart[len(intPart)-3:]
		rest := intPart[:len(intPart)-3]

		var groups []string
		for len(rest) > 2 {
			groups = append([]string{rest[len(rest)-2:]}, groups...)
			rest = rest[:len(rest)-2]
		}
		if rest != "" {
			groups = append([]string{rest}, groups...)
		}
		intPart = strings.Join(groups, ",") + "," + last
	}

	out := intPart + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// FormatQty renders a unit count with up to three decimals, trimming a
// whole number down to its integer form.
func FormatQty(q decimal.Decimal) string {
	if q.Equal(q.Truncate(0)) {
		return q.Truncate(0).String()
	}
	return q.Round(3).String()
}

func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}

// FormatDate renders DD-MM-YYYY.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02-01-2006")
}

// ParseDate parses DD-MM-YYYY.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("02-01-2006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ToPaise converts a rupee amount to paise, rounding half away from zero.
func ToPaise(rupees decimal.Decimal) int64 {
	return rupees.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
