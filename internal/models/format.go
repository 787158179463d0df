package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DisplayDateLayout matches the DD-Mon-YY dates of the source file.
const DisplayDateLayout = "02-Jan-06"

func FormatDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}

// FormatCurrency renders v as dollars with thousands separators, e.g. $12,345.60.
func FormatCurrency(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}
