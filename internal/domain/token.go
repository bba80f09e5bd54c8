package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"tokenscope/pkg/format"
)

// Field identifies one on-chain read of an ERC-20 contract.
type Field string

const (
	FieldSymbol      Field = "symbol"
	FieldName        Field = "name"
	FieldDecimals    Field = "decimals"
	FieldTotalSupply Field = "totalSupply"
	FieldBalance     Field = "balanceOf"
	FieldPrice       Field = "price"
)

// MetadataFields are the four reads issued together for a token query.
var MetadataFields = []Field{FieldSymbol, FieldName, FieldDecimals, FieldTotalSupply}

// BalanceField qualifies a balance read with its holder so balances of
// different holders cache independently.
func BalanceField(holder string) Field {
	return Field(string(FieldBalance) + ":" + format.NormalizeAddress(holder))
}

// TokenMetadata aggregates the metadata reads for one token on one chain.
// A field that failed to resolve is left at its zero value; FetchedAt is
// the time the aggregate settled, not per-field.
type TokenMetadata struct {
	Address     string          `json:"address"`
	ChainID     int64           `json:"chain_id"`
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Decimals    int             `json:"decimals"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// SupplyUnits returns the total supply in human units.
func (m TokenMetadata) SupplyUnits() decimal.Decimal {
	return format.FormatUnits(m.TotalSupply, m.Decimals)
}

// ValidateAddress checks an address and returns its normalized form.
func ValidateAddress(addr string) (string, error) {
	if !format.IsValidAddress(addr) {
		return "", ErrInvalidAddress
	}
	return format.NormalizeAddress(addr), nil
}
