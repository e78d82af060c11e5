package daraja

import "strings"

// NormalizePhone canonicalizes a Kenyan phone number to the 12-digit
// 254XXXXXXXXX form Daraja requires. Accepted inputs: 07XXXXXXXX /
// 01XXXXXXXX local forms, bare 9-digit subscriber numbers, +254 prefixed
// numbers with arbitrary punctuation, and already-canonical 12-digit
// numbers.
func NormalizePhone(input string) (string, error) {
	digits := stripNonDigits(input)

	var normalized string
	switch {
	case len(digits) == 10 && digits[0] == '0':
		normalized = "254" + digits[1:]
	case len(digits) == 9:
		normalized = "254" + digits
	default:
		normalized = digits
	}

	if len(normalized) != 12 || !strings.HasPrefix(normalized, "254") {
		return "", NewInvalidPhoneError(input, normalized)
	}
	return normalized, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
