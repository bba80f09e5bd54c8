package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FavoriteToken is a user-pinned token, unique per (address, chainID).
type FavoriteToken struct {
	ID       string    `json:"id"`
	Address  string    `json:"address"` // normalized (lowercase)
	ChainID  int64     `json:"chain_id"`
	Symbol   string    `json:"symbol,omitempty"`
	Name     string    `json:"name,omitempty"`
	Decimals int       `json:"decimals,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Note     string    `json:"note,omitempty"`
	AddedAt  time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFavoriteToken builds a favorite for a normalized address.
func NewFavoriteToken(address string, chainID int64, symbol, name string, decimals int) FavoriteToken {
	now := time.Now()
	return FavoriteToken{
		ID:        uuid.NewString(),
		Address:   address,
		ChainID:   chainID,
		Symbol:    symbol,
		Name:      name,
		Decimals:  decimals,
		AddedAt:   now,
		UpdatedAt: now,
	}
}

// SameToken reports whether two favorites refer to the same token.
func (f FavoriteToken) SameToken(address string, chainID int64) bool {
	return f.Address == address && f.ChainID == chainID
}

// Matches reports whether the favorite matches a case-insensitive
// substring query over address, symbol, name, tags and note.
func (f FavoriteToken) Matches(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(f.Address, q) ||
		strings.Contains(strings.ToLower(f.Symbol), q) ||
		strings.Contains(strings.ToLower(f.Name), q) ||
		strings.Contains(strings.ToLower(f.Note), q) {
		return true
	}
	for _, tag := range f.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// FavoriteUpdate carries the updatable fields of a favorite.
// Nil fields are left unchanged by Apply.
type FavoriteUpdate struct {
	Symbol *string
	Name   *string
	Tags   *[]string
	Note   *string
}

// Apply merges the update into the favorite and bumps UpdatedAt.
func (f FavoriteToken) Apply(u FavoriteUpdate) FavoriteToken {
	if u.Symbol != nil {
		f.Symbol = *u.Symbol
	}
	if u.Name != nil {
		f.Name = *u.Name
	}
	if u.Tags != nil {
		f.Tags = *u.Tags
	}
	if u.Note != nil {
		f.Note = *u.Note
	}
	f.UpdatedAt = time.Now()
	return f
}

// FavoriteSort selects a favorites ordering.
type FavoriteSort string

const (
	SortByAdded  FavoriteSort = "added" // most-recently-added first (default)
	SortBySymbol FavoriteSort = "symbol"
	SortByName   FavoriteSort = "name"
)

// SortFavorites returns a sorted copy of favorites ordered ascending
// by the sort key; descending reverses any key. The input slice is not
// modified. Unknown sort keys fall back to SortByAdded.
func SortFavorites(favorites []FavoriteToken, by FavoriteSort, descending bool) []FavoriteToken {
	out := make([]FavoriteToken, len(favorites))
	copy(out, favorites)

	var less func(i, j int) bool
	switch by {
	case SortBySymbol:
		less = func(i, j int) bool {
			return strings.ToLower(out[i].Symbol) < strings.ToLower(out[j].Symbol)
		}
	case SortByName:
		less = func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
	default:
		less = func(i, j int) bool {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
	}

	if descending {
		orig := less
		less = func(i, j int) bool { return orig(j, i) }
	}

	sort.SliceStable(out, less)
	return out
}
