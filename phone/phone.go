// Package phone normalizes phone numbers to international E.164-style form
// before SMS dispatch and resolves country dial codes.
//
// An explicit dial code always wins over the country lookup, and both win
// over the configured default prefix; numbers that already carry a "+"
// prefix are passed through untouched apart from digit cleanup.
package phone

import (
	"errors"
	"strings"
)

var ErrEmptyNumber = errors.New("phone number is empty")

// dialCodes maps lowercase country names to their international dial code.
// The set covers the platform's launch markets; unknown countries fall back
// to the configured default prefix.
var dialCodes = map[string]string{
	"costa rica":         "506",
	"mexico":             "52",
	"guatemala":          "502",
	"honduras":           "504",
	"el salvador":        "503",
	"nicaragua":          "505",
	"panama":             "507",
	"colombia":           "57",
	"ecuador":            "593",
	"peru":               "51",
	"chile":              "56",
	"argentina":          "54",
	"uruguay":            "598",
	"paraguay":           "595",
	"bolivia":            "591",
	"venezuela":          "58",
	"brazil":             "55",
	"dominican republic": "1809",
	"united states":      "1",
	"canada":             "1",
	"spain":              "34",
}

// DialCodeForCountry returns the dial code for a country name,
// case-insensitively. The second return is false for unknown countries.
func DialCodeForCountry(country string) (string, bool) {
	code, ok := dialCodes[strings.ToLower(strings.TrimSpace(country))]
	return code, ok
}

// Normalize formats number for international dispatch. dialCode, when
// non-empty, is prepended to the bare national number; otherwise
// defaultDialCode is used. A number already starting with "+" keeps its
// existing prefix.
func Normalize(number, dialCode, defaultDialCode string) (string, error) {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return "", ErrEmptyNumber
	}

	digits := digitsOnly(trimmed)
	if digits == "" {
		return "", ErrEmptyNumber
	}

	if strings.HasPrefix(trimmed, "+") {
		return "+" + digits, nil
	}

	prefix := digitsOnly(dialCode)
	if prefix == "" {
		prefix = digitsOnly(defaultDialCode)
	}
	if prefix == "" {
		return "+" + digits, nil
	}

	// Avoid doubling the prefix when the caller already typed it without
	// the leading plus.
	if strings.HasPrefix(digits, prefix) && len(digits) > len(prefix)+4 {
		return "+" + digits, nil
	}

	return "+" + prefix + digits, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
