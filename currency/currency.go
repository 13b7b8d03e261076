// Package currency validates ISO 4217 currency codes and derives a default
// currency from a locale. Both are thin wrappers around golang.org/x/text so
// that callers never consult ambient process state for the default.
package currency

import (
	"errors"
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// Default is used when neither an explicit code nor a locale is configured.
const Default = "USD"

// CodeLength is the byte length of every ISO 4217 alphabetic code.
const CodeLength = 3

var ErrUnknownLocale = errors.New("currency: no currency for locale")

// IsValid reports whether code is a recognised three-letter upper-case ISO
// 4217 code.
func IsValid(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	_, err := currency.ParseISO(code)
	return err == nil
}

// FromLocale returns the currency used in the region of a BCP 47 locale such
// as "en-US" or "be-BY". A locale without a region is resolved through its
// likely subtags.
func FromLocale(locale string) (string, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("currency: parse locale %q: %w", locale, err)
	}

	unit, confidence := currency.FromTag(tag)
	if confidence == language.No {
		return "", fmt.Errorf("%w: %q", ErrUnknownLocale, locale)
	}

	return unit.String(), nil
}
