package telephony

import "strings"

const ukCountryCode = "44"

// NormalizeE164 cleans a number as received from a provider or a form into
// E.164. UK national numbers (leading 0) get the +44 prefix and 00 becomes +.
// Only ASCII digits count; values without any, such as "anonymous", are
// returned trimmed.
func NormalizeE164(raw string) string {
	s := strings.TrimSpace(raw)
	var sb strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			sb.WriteRune(ch)
		}
	}
	digits := sb.String()
	if digits == "" {
		return s
	}

	switch {
	case strings.HasPrefix(s, "+"):
		return "+" + digits
	case strings.HasPrefix(digits, "00"):
		return "+" + digits[2:]
	case strings.HasPrefix(digits, "0") && len(digits) == 11:
		return "+" + ukCountryCode + digits[1:]
	case strings.HasPrefix(digits, ukCountryCode) && len(digits) == 12:
		return "+" + digits
	default:
		return digits
	}
}

// IsE164 reports whether s is "+" followed by 8 to 15 digits.
func IsE164(s string) bool {
	if len(s) < 9 || len(s) > 16 || s[0] != '+' || s[1] == '0' {
		return false
	}
	for _, ch := range s[1:] {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
