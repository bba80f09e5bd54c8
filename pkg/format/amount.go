package format

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxTokenDecimals caps the decimals value accepted from a contract.
// ERC-20 decimals() is uint8, but hostile contracts return garbage;
// anything above this is treated as unformattable raw units.
const MaxTokenDecimals = 36

// FormatUnits converts a raw integer token amount to human units by
// shifting the decimal point left by decimals places.
// E.g., FormatUnits(1230000, 6) -> 1.23.
func FormatUnits(raw decimal.Decimal, decimals int) decimal.Decimal {
	if decimals <= 0 {
		return raw
	}
	if decimals > MaxTokenDecimals {
		return raw
	}
	return raw.Shift(int32(-decimals))
}

// ToRawUnits converts a human-unit amount back to raw integer units,
// truncating any precision beyond the token's decimals.
func ToRawUnits(amount decimal.Decimal, decimals int) decimal.Decimal {
	if decimals <= 0 || decimals > MaxTokenDecimals {
		return amount
	}
	return amount.Shift(int32(decimals)).Truncate(0)
}

// FormatAmount renders a raw amount as a fixed-precision string with
// the token symbol appended. Display precision is capped at 8 places.
func FormatAmount(raw decimal.Decimal, decimals int, symbol string) string {
	units := FormatUnits(raw, decimals)
	places := int32(decimals)
	if places > 8 {
		places = 8
	}
	if places < 0 {
		places = 0
	}
	s := units.StringFixed(places)
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}

// FormatCompact renders a large figure with a K/M/B/T suffix, two
// decimal places. Used for market cap and volume display.
func FormatCompact(v decimal.Decimal) string {
	abs := v.Abs()
	switch {
	case abs.GreaterThanOrEqual(decimal.New(1, 12)):
		return fmt.Sprintf("%sT", v.Div(decimal.New(1, 12)).StringFixed(2))
	case abs.GreaterThanOrEqual(decimal.New(1, 9)):
		return fmt.Sprintf("%sB", v.Div(decimal.New(1, 9)).StringFixed(2))
	case abs.GreaterThanOrEqual(decimal.New(1, 6)):
		return fmt.Sprintf("%sM", v.Div(decimal.New(1, 6)).StringFixed(2))
	case abs.GreaterThanOrEqual(decimal.New(1, 3)):
		return fmt.Sprintf("%sK", v.Div(decimal.New(1, 3)).StringFixed(2))
	default:
		return v.StringFixed(2)
	}
}
