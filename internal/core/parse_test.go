package core

import (
	"errors"
	"testing"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		err error
	}{
		{"8", 8, nil},
		{"7.5", 7.5, nil},
		{"7,5", 7.5, nil},
		{" 0 ", 0, nil},
		{"0.25", 0.25, nil},
		{"", 0, ErrMissingValue},
		{"   ", 0, ErrMissingValue},
		{"abc", 0, ErrNotANumber},
		{"1.2.3", 0, ErrNotANumber},
		{"NaN", 0, ErrNotANumber},
		{"Inf", 0, ErrNotANumber},
	}
	for _, tc := range cases {
		got, err := ParseNumber(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil || got != tc.out {
			t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
		}
	}
}

func TestParseBoundedIsClosedInterval(t *testing.T) {
	for _, in := range []string{"0", "24", "12.5"} {
		if _, err := ParseBounded(in, 0, 24); err != nil {
			t.Fatalf("%q expected ok, got %v", in, err)
		}
	}
	for _, in := range []string{"-0.1", "24.01", "100"} {
		if _, err := ParseBounded(in, 0, 24); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("%q expected out of range, got %v", in, err)
		}
	}
}

func TestParseWhole(t *testing.T) {
	if v, err := ParseWhole("10", 1, 10); err != nil || v != 10 {
		t.Fatalf("expected 10, got %d (err=%v)", v, err)
	}
	if _, err := ParseWhole("7.5", 1, 10); !errors.Is(err, ErrNotWhole) {
		t.Fatalf("expected not whole, got %v", err)
	}
	if _, err := ParseWhole("0", 1, 10); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if v, err := ParseWhole("6.0", 1, 10); err != nil || v != 6 {
		t.Fatalf("expected 6, got %d (err=%v)", v, err)
	}
}
