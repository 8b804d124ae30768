package notify

import (
	"mime"
	"strconv"
	"strings"
)

func mimeHeader(s string) string {
	return mime.BEncoding.Encode("UTF-8", s)
}

// FormatMoney renders whole amounts with thousands separators, e.g. "1,500,000 MNT".
func FormatMoney(amount float64, currency string) string {
	whole := strconv.FormatFloat(amount, 'f', 0, 64)
	if amount != float64(int64(amount)) {
		whole = strconv.FormatFloat(amount, 'f', 2, 64)
	}
	intPart, frac, _ := strings.Cut(whole, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	if currency != "" {
		out += " " + currency
	}
	return out
}
