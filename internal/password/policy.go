// Package password evaluates candidate passwords against the account password policy.
//
// Every function here is pure: no I/O and no shared state, so callers may use them
// concurrently without coordination.
package password

import (
	"strings"
	"unicode/utf8"
)

const (
	MinLength = 8
	MaxLength = 128

	// SpecialChars is the accepted set for the special-character class.
	SpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

	repeatRun      = 4
	sequenceWindow = 3
)

// Violation is a stable code for one failed policy rule.
type Violation string

const (
	TooShort           Violation = "too_short"
	TooLong            Violation = "too_long"
	MissingUppercase   Violation = "missing_uppercase"
	MissingLowercase   Violation = "missing_lowercase"
	MissingDigit       Violation = "missing_digit"
	MissingSpecialChar Violation = "missing_special_char"
	CommonPassword     Violation = "common_password"
	RepeatedChars      Violation = "repeated_chars"
	SequentialChars    Violation = "sequential_chars"
)

// Message is the user-facing explanation for the violation.
func (v Violation) Message() string {
	switch v {
	case TooShort:
		return "Password must be at least 8 characters long"
	case TooLong:
		return "Password must not exceed 128 characters"
	case MissingUppercase:
		return "Password must contain at least one uppercase letter"
	case MissingLowercase:
		return "Password must contain at least one lowercase letter"
	case MissingDigit:
		return "Password must contain at least one digit"
	case MissingSpecialChar:
		return "Password must contain at least one special character"
	case CommonPassword:
		return "Password is too common, please choose a stronger password"
	case RepeatedChars:
		return "Password cannot contain more than 3 consecutive identical characters"
	case SequentialChars:
		return "Password cannot contain sequential characters (e.g., abc, 123)"
	default:
		return string(v)
	}
}

// Violations is the ordered set of rules a password fails.
type Violations []Violation

// Has reports whether v is in the set.
func (vs Violations) Has(v Violation) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// Messages returns the user-facing message of each violation, in order.
func (vs Violations) Messages() []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Message()
	}
	return out
}

var commonPasswords = map[string]struct{}{
	"password":    {},
	"123456":      {},
	"password123": {},
	"admin":       {},
	"qwerty":      {},
	"letmein":     {},
	"welcome":     {},
	"monkey":      {},
	"1234567890":  {},
	"password1":   {},
}

// Evaluate runs every rule and returns the violations in declaration order.
// An empty password yields no violations; presence is enforced by Validate.
func Evaluate(password string) Violations {
	if password == "" {
		return nil
	}

	var out Violations
	n := utf8.RuneCountInString(password)
	if n < MinLength {
		out = append(out, TooShort)
	}
	if n > MaxLength {
		out = append(out, TooLong)
	}

	c := classify(password)
	if !c.upper {
		out = append(out, MissingUppercase)
	}
	if !c.lower {
		out = append(out, MissingLowercase)
	}
	if !c.digit {
		out = append(out, MissingDigit)
	}
	if !c.special {
		out = append(out, MissingSpecialChar)
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		out = append(out, CommonPassword)
	}

	runes := []rune(password)
	if hasRepeatedRun(runes) {
		out = append(out, RepeatedChars)
	}
	if hasSequence(runes) {
		out = append(out, SequentialChars)
	}
	return out
}

type classes struct {
	upper, lower, digit, special bool
}

func (c classes) count() int {
	n := 0
	for _, ok := range []bool{c.upper, c.lower, c.digit, c.special} {
		if ok {
			n++
		}
	}
	return n
}

func classify(s string) classes {
	var c classes
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= '0' && r <= '9':
			c.digit = true
		case strings.ContainsRune(SpecialChars, r):
			c.special = true
		}
	}
	return c
}

func hasRepeatedRun(runes []rune) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= repeatRun {
				return true
			}
			continue
		}
		run = 1
	}
	return false
}

// hasSequence scans every 3-character window for a strictly ascending or
// descending step of one code point.
func hasSequence(runes []rune) bool {
	for i := 0; i+sequenceWindow <= len(runes); i++ {
		a, b, c := runes[i], runes[i+1], runes[i+2]
		if b-a == 1 && c-b == 1 {
			return true
		}
		if a-b == 1 && b-c == 1 {
			return true
		}
	}
	return false
}
