// Package phone canonicalizes Nigerian phone numbers into the
// international format the SMS gateway expects (234XXXXXXXXXX).
package phone

import (
	"errors"
	"strings"
)

const (
	countryCode      = "234"
	normalizedLength = 13
	subscriberLength = 10
)

var ErrInvalidPhone = errors.New("invalid phone number format")

// Normalize strips formatting, converts local trunk notation to the 234
// country code and validates the result. It is pure; callers decide what
// to do with ErrInvalidPhone.
func Normalize(raw string) (string, error) {
	digits := stripNonDigits(raw)
	if digits == "" {
		return "", ErrInvalidPhone
	}

	switch {
	case strings.HasPrefix(digits, countryCode):
		// Already international (a leading "+" is gone by now).
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + digits[1:]
	case len(digits) == subscriberLength:
		digits = countryCode + digits
	default:
		return "", ErrInvalidPhone
	}

	if len(digits) != normalizedLength {
		return "", ErrInvalidPhone
	}

	// First subscriber digit must be a Nigerian mobile prefix.
	switch digits[3] {
	case '7', '8', '9':
		return digits, nil
	default:
		return "", ErrInvalidPhone
	}
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
