package format

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		raw      string
		decimals int
		expected string
	}{
		{"1230000", 6, "1.23"},
		{"1000000000000000000", 18, "1"},
		{"1", 18, "0.000000000000000001"},
		{"500", 0, "500"},
		{"500", -1, "500"},
		{"123", 100, "123"}, // decimals above cap: raw passthrough
	}

	for _, tt := range tests {
		raw, err := decimal.NewFromString(tt.raw)
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tt.raw, err)
		}
		got := FormatUnits(raw, tt.decimals)
		if got.String() != tt.expected {
			t.Errorf("FormatUnits(%s, %d) = %s; want %s", tt.raw, tt.decimals, got, tt.expected)
		}
	}
}

func TestToRawUnits_RoundTrip(t *testing.T) {
	raw := decimal.RequireFromString("123456789")
	units := FormatUnits(raw, 6)
	back := ToRawUnits(units, 6)
	if !back.Equal(raw) {
		t.Errorf("round trip = %s; want %s", back, raw)
	}
}

func TestFormatAmount(t *testing.T) {
	raw := decimal.RequireFromString("1500000000000000000")
	got := FormatAmount(raw, 18, "ETH")
	want := "1.50000000 ETH"
	if got != want {
		t.Errorf("FormatAmount() = %q; want %q", got, want)
	}
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"999", "999.00"},
		{"1500", "1.50K"},
		{"2500000", "2.50M"},
		{"7100000000", "7.10B"},
		{"1200000000000", "1.20T"},
		{"-2500000", "-2.50M"},
	}

	for _, tt := range tests {
		v := decimal.RequireFromString(tt.input)
		got := FormatCompact(v)
		if got != tt.expected {
			t.Errorf("FormatCompact(%s) = %s; want %s", tt.input, got, tt.expected)
		}
	}
}
