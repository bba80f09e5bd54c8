package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ERC-20 function selectors (first 4 bytes of keccak256 of the signature).
const (
	selectorSymbol      = "0x95d89b41" // symbol()
	selectorName        = "0x06fdde03" // name()
	selectorDecimals    = "0x313ce567" // decimals()
	selectorTotalSupply = "0x18160ddd" // totalSupply()
	selectorBalanceOf   = "0x70a08231" // balanceOf(address)
)

// wordSize is the ABI slot width in hex characters (32 bytes).
const wordSize = 64

// encodeAddressArg left-pads a 20-byte address into a 32-byte ABI slot.
func encodeAddressArg(addr string) string {
	hexPart := strings.ToLower(strings.TrimPrefix(addr, "0x"))
	return strings.Repeat("0", wordSize-len(hexPart)) + hexPart
}

// stripResult removes the 0x prefix from an eth_call result.
func stripResult(result string) string {
	return strings.TrimPrefix(result, "0x")
}

// decodeUint256 decodes a single uint256 return value.
func decodeUint256(result string) (decimal.Decimal, error) {
	raw := stripResult(result)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty call result")
	}
	if len(raw) > wordSize {
		raw = raw[:wordSize]
	}

	n, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return decimal.Zero, fmt.Errorf("malformed uint256 result: %q", result)
	}
	return decimal.NewFromBigInt(n, 0), nil
}

// decodeString decodes a string return value. Standard tokens return a
// dynamic string (offset + length + data); a few older contracts return
// a fixed bytes32 instead, which is handled as a fallback.
func decodeString(result string) (string, error) {
	raw := stripResult(result)
	if raw == "" {
		return "", fmt.Errorf("empty call result")
	}

	// bytes32 fallback: exactly one slot, NUL-padded ASCII
	if len(raw) == wordSize {
		return decodeBytes32(raw)
	}

	if len(raw) < 2*wordSize {
		return "", fmt.Errorf("string result too short: %d chars", len(raw))
	}

	// The contract controls the return data, so bound the offset and
	// length words against the payload size before multiplying; a huge
	// word would overflow into a negative slice index.
	offset, err := hexWordToInt(raw[:wordSize])
	if err != nil {
		return "", fmt.Errorf("malformed string offset: %w", err)
	}
	if offset < 0 || offset > len(raw)/2 {
		return "", fmt.Errorf("string offset out of range")
	}

	lenPos := offset * 2
	if lenPos+wordSize > len(raw) {
		return "", fmt.Errorf("string offset out of range")
	}

	strLen, err := hexWordToInt(raw[lenPos : lenPos+wordSize])
	if err != nil {
		return "", fmt.Errorf("malformed string length: %w", err)
	}
	if strLen < 0 || strLen > len(raw)/2 {
		return "", fmt.Errorf("string length out of range")
	}

	dataPos := lenPos + wordSize
	if dataPos+strLen*2 > len(raw) {
		return "", fmt.Errorf("string length out of range")
	}

	data, err := hex.DecodeString(raw[dataPos : dataPos+strLen*2])
	if err != nil {
		return "", fmt.Errorf("malformed string data: %w", err)
	}
	return string(data), nil
}

func decodeBytes32(raw string) (string, error) {
	data, err := hex.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("malformed bytes32 result: %w", err)
	}
	return strings.TrimRight(string(data), "\x00"), nil
}

func hexWordToInt(word string) (int, error) {
	n, ok := new(big.Int).SetString(word, 16)
	if !ok {
		return 0, fmt.Errorf("not a hex word: %q", word)
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("hex word overflows int64")
	}
	return int(n.Int64()), nil
}
