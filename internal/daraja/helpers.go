package daraja

import (
	"math"
	"unicode/utf8"
)

// roundAmount converts a caller amount to the whole KES units Daraja
// accepts. Rounding happens before the minimum check so 0.6 becomes a
// valid 1 and 0.4 a rejected 0.
func roundAmount(amount float64) int {
	return int(math.Round(amount))
}

// truncate enforces Daraja's hard field length limits. Policy is
// truncation, not rejection. The cut backs up to a rune boundary so a
// multi-byte character is dropped whole rather than split into invalid
// UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
