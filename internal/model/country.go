package model

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidCountryCode is returned when the exit selection is neither a two
// letter country code nor "random".
var ErrInvalidCountryCode = errors.New("invalid country code")

// randomKeyword selects an unrestricted exit, compared case-insensitively.
const randomKeyword = "random"

// CountryCode is the validated exit node selection. The zero value and
// RandomExit both mean "no country filter".
type CountryCode struct {
	code string // upper-case ISO 3166-1 alpha-2, empty for random
}

// RandomExit lets Tor pick any exit relay.
var RandomExit = CountryCode{}

// ParseCountryCode validates user input. "random" in any casing yields
// RandomExit; exactly two ASCII letters yield an upper-cased country code.
// Anything else, including the empty string, is rejected.
func ParseCountryCode(input string) (CountryCode, error) {
	s := strings.TrimSpace(input)
	if strings.EqualFold(s, randomKeyword) {
		return RandomExit, nil
	}
	if len(s) != 2 || !isASCIILetter(s[0]) || !isASCIILetter(s[1]) {
		return CountryCode{}, ErrInvalidCountryCode
	}
	return CountryCode{code: cases.Upper(language.Und).String(s)}, nil
}

// MustParseCountryCode is ParseCountryCode for known-valid literals.
func MustParseCountryCode(input string) CountryCode {
	cc, err := ParseCountryCode(input)
	if err != nil {
		panic(err)
	}
	return cc
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// IsRandom reports whether no country filter applies.
func (c CountryCode) IsRandom() bool {
	return c.code == ""
}

// Code returns the upper-case country code, or "" for a random exit.
func (c CountryCode) Code() string {
	return c.code
}

// String returns the country code, or "Random".
func (c CountryCode) String() string {
	if c.IsRandom() {
		return "Random"
	}
	return c.code
}
