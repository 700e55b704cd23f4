// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// ErrTooFewDigits is returned when a number has fewer than ten digits and no
// area code can be extracted from it.
var ErrTooFewDigits = errors.New("phone number has fewer than 10 digits")

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Digits strips every non-digit character from the input.
func Digits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AreaCode extracts the Brazilian DDD from a phone number: the first two
// digits of the national number, after stripping a leading 55 country code.
// National numbers are ten digits for landlines and eleven for mobiles, so
// the DDD always leads. Numbers with fewer than ten national digits carry
// no DDD and return ErrTooFewDigits.
func AreaCode(input string) (string, error) {
	digits := Digits(input)
	if len(digits) >= 12 && strings.HasPrefix(digits, "55") {
		digits = digits[2:]
	}
	if len(digits) < 10 {
		return "", ErrTooFewDigits
	}
	return digits[:2], nil
}
