package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxHistoryItems caps the search history; entries beyond the cap are
// dropped oldest-first.
const MaxHistoryItems = 20

// SearchHistoryItem records one successfully queried token address.
// At most one item exists per normalized address.
type SearchHistoryItem struct {
	ID         string    `json:"id"`
	Address    string    `json:"address"` // normalized (lowercase)
	ChainID    int64     `json:"chain_id"`
	Symbol     string    `json:"symbol,omitempty"`
	Name       string    `json:"name,omitempty"`
	LastAccess time.Time `json:"last_access"`
}

// NewSearchHistoryItem builds an item for a normalized address.
func NewSearchHistoryItem(address string, chainID int64, symbol, name string) SearchHistoryItem {
	return SearchHistoryItem{
		ID:         uuid.NewString(),
		Address:    address,
		ChainID:    chainID,
		Symbol:     symbol,
		Name:       name,
		LastAccess: time.Now(),
	}
}

// Matches reports whether the item matches a case-insensitive
// substring query over address, symbol and name.
func (h SearchHistoryItem) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(h.Address, q) ||
		strings.Contains(strings.ToLower(h.Symbol), q) ||
		strings.Contains(strings.ToLower(h.Name), q)
}

// TouchHistory returns items with the given entry moved to the front,
// deduplicated by normalized address and capped at MaxHistoryItems.
// Items are always kept most-recent-first.
func TouchHistory(items []SearchHistoryItem, entry SearchHistoryItem) []SearchHistoryItem {
	out := make([]SearchHistoryItem, 0, len(items)+1)
	out = append(out, entry)
	for _, it := range items {
		if it.Address == entry.Address {
			// Existing entry: keep its ID, drop the duplicate.
			out[0].ID = it.ID
			continue
		}
		out = append(out, it)
	}
	if len(out) > MaxHistoryItems {
		out = out[:MaxHistoryItems]
	}
	return out
}
