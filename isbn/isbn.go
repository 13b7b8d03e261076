// Package isbn verifies ISBN-10 and ISBN-13 book identifiers.
package isbn

import "regexp"

// MaxLength is the longest identifier the pattern accepts, hyphens included.
const MaxLength = 17

var pattern = regexp.MustCompile(`^[0-9]{0,3}-??[0-9]-??[0-9]{3}-??[0-9]{5}-??[0-9X]$`)

// IsValid reports whether s is a well-formed ISBN-10 or ISBN-13 with a
// correct check digit. The empty string is valid: it stands for a book
// without an identifier.
func IsValid(s string) bool {
	if s == "" {
		return true
	}
	if !pattern.MatchString(s) {
		return false
	}

	digits := make([]int, 0, 13)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits = append(digits, int(c-'0'))
		case c == 'X':
			digits = append(digits, 10)
		}
	}

	switch len(digits) {
	case 10:
		return valid10(digits)
	case 13:
		return valid13(digits)
	default:
		return false
	}
}

func valid10(digits []int) bool {
	sum := 0
	for i, d := range digits {
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func valid13(digits []int) bool {
	sum := 0
	for i, d := range digits {
		if d == 10 {
			return false
		}
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	return sum%10 == 0
}
