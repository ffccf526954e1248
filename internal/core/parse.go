package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNotANumber   = errors.New("not a number")
	ErrOutOfRange   = errors.New("out of range")
	ErrNotWhole     = errors.New("not a whole number")
	ErrMissingValue = errors.New("missing value")
)

// ParseNumber parses a form value as a finite real number.
//
// Surrounding whitespace is ignored and a decimal comma is accepted in place
// of the dot, so "7,5" and "7.5" both parse to 7.5.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingValue
	}
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrNotANumber
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotANumber
	}
	return v, nil
}

// ParseBounded parses s and checks it against the closed interval [min, max].
func ParseBounded(s string, min, max float64) (float64, error) {
	v, err := ParseNumber(s)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, ErrOutOfRange
	}
	return v, nil
}

// ParseWhole is ParseBounded for integer-valued fields.
func ParseWhole(s string, min, max int) (int, error) {
	v, err := ParseBounded(s, float64(min), float64(max))
	if err != nil {
		return 0, err
	}
	if math.Trunc(v) != v {
		return 0, ErrNotWhole
	}
	return int(v), nil
}
