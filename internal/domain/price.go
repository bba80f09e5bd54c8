package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a point-in-time market snapshot for a token.
type PriceQuote struct {
	Address   string          `json:"address"`
	ChainID   int64           `json:"chain_id"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	Change24h decimal.Decimal `json:"change_24h"` // percent
	MarketCap decimal.Decimal `json:"market_cap"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// PricePoint is one bucket of a historical price series.
type PricePoint struct {
	Ts       time.Time       `json:"ts"`
	PriceUSD decimal.Decimal `json:"price_usd"`
}

// PriceWindow selects the bucketing range of a history request.
type PriceWindow string

const (
	Window24h PriceWindow = "24h"
	Window7d  PriceWindow = "7d"
	Window30d PriceWindow = "30d"
	Window1y  PriceWindow = "1y"
)

// Days returns the window length in days for API requests.
func (w PriceWindow) Days() int {
	switch w {
	case Window24h:
		return 1
	case Window7d:
		return 7
	case Window30d:
		return 30
	case Window1y:
		return 365
	default:
		return 1
	}
}
