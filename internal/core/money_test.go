package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCentsFromDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12.34", 1234},
		{"12.345", 1235}, // half away from zero on the third place
		{"12.344", 1234},
		{"-90", -9000},
		{"-0.5", -50},
		{"0.01", 1},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		got, err := CentsFromDecimal(d)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCentsFromDecimalRejects(t *testing.T) {
	for _, in := range []string{"0", "0.001", "99999999999999999999999999"} {
		d, err := decimal.NewFromString(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		_, err = CentsFromDecimal(d)
		if err == nil {
			t.Fatalf("%q: expected error", in)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%q: expected ValidationError, got %T", in, err)
		}
	}
}

func TestParseAmount(t *testing.T) {
	if got, err := ParseAmount("12.34"); err != nil || got != 1234 {
		t.Fatalf("got %d, %v", got, err)
	}
	for _, in := range []string{"NaN", "inf", "-inf", "abc", ""} {
		if _, err := ParseAmount(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestDecimalFromCents(t *testing.T) {
	if got := DecimalFromCents(-9000); !got.Equal(decimal.NewFromInt(-90)) {
		t.Fatalf("got %s", got)
	}
	if got := DecimalFromCents(1234); !got.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("got %s", got)
	}
}
