package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tokenscope/internal/domain"
)

const favoritesKey = "favorites"

// ExportVersion tags exported favorites payloads.
const ExportVersion = "1.0"

// FavoritesExport is the export/import file format.
type FavoritesExport struct {
	Version    string                 `json:"version"`
	ExportTime int64                  `json:"export_time"` // epoch ms
	Favorites  []domain.FavoriteToken `json:"favorites"`
}

// FavoritesStore keeps the user's pinned tokens, unique per
// (address, chainID), persisted to the KV store on every mutation.
// Same save-failure policy as HistoryStore: memory is only replaced
// after a successful write.
type FavoritesStore struct {
	kv    KV
	mu    sync.Mutex
	items []domain.FavoriteToken
}

// NewFavoritesStore loads persisted favorites. Absent or corrupt data
// initializes an empty collection; load never fails the caller.
func NewFavoritesStore(ctx context.Context, kv KV) *FavoritesStore {
	s := &FavoritesStore{kv: kv}

	raw, err := kv.Get(ctx, favoritesKey)
	if err != nil {
		slog.Warn("Favorites load failed, starting empty", slog.Any("error", err))
		return s
	}
	if raw == "" {
		return s
	}
	if err := json.Unmarshal([]byte(raw), &s.items); err != nil {
		slog.Warn("Favorites parse failed, starting empty", slog.Any("error", err))
		s.items = nil
	}
	return s
}

// Items returns the favorites in default order (most recently added first).
func (s *FavoritesStore) Items() []domain.FavoriteToken {
	return s.List(domain.SortByAdded, true)
}

// List returns the favorites in the requested order.
func (s *FavoritesStore) List(by domain.FavoriteSort, descending bool) []domain.FavoriteToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SortFavorites(s.items, by, descending)
}

// Len returns the number of favorites.
func (s *FavoritesStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Add inserts a favorite. A favorite for the same (address, chainID)
// already present is rejected with ErrDuplicateFavorite.
func (s *FavoritesStore) Add(ctx context.Context, fav domain.FavoriteToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// No suspension point between this check and the write below;
	// anyone adding one must re-validate uniqueness.
	for _, it := range s.items {
		if it.SameToken(fav.Address, fav.ChainID) {
			return domain.ErrDuplicateFavorite
		}
	}

	next := append(append([]domain.FavoriteToken{}, s.items...), fav)
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.items = next
	return nil
}

// Update merges the given fields into an existing favorite.
func (s *FavoritesStore) Update(ctx context.Context, address string, chainID int64, upd domain.FavoriteUpdate) (domain.FavoriteToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.FavoriteToken, len(s.items))
	copy(next, s.items)

	for i, it := range next {
		if !it.SameToken(address, chainID) {
			continue
		}
		next[i] = it.Apply(upd)
		if err := s.save(ctx, next); err != nil {
			return domain.FavoriteToken{}, err
		}
		s.items = next
		return next[i], nil
	}
	return domain.FavoriteToken{}, domain.ErrNotFound
}

// Remove deletes the favorite for (address, chainID).
func (s *FavoritesStore) Remove(ctx context.Context, address string, chainID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.FavoriteToken, 0, len(s.items))
	for _, it := range s.items {
		if !it.SameToken(address, chainID) {
			next = append(next, it)
		}
	}
	if len(next) == len(s.items) {
		return domain.ErrNotFound
	}

	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.items = next
	return nil
}

// Search returns favorites matching a case-insensitive substring query
// over address, symbol, name, tags and note.
func (s *FavoritesStore) Search(query string) []domain.FavoriteToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.FavoriteToken
	for _, it := range s.items {
		if it.Matches(query) {
			out = append(out, it)
		}
	}
	return domain.SortFavorites(out, domain.SortByAdded, true)
}

// ExportDoc builds the versioned exchange document from the current
// collection.
func (s *FavoritesStore) ExportDoc() *FavoritesExport {
	s.mu.Lock()
	items := make([]domain.FavoriteToken, len(s.items))
	copy(items, s.items)
	s.mu.Unlock()

	return &FavoritesExport{
		Version:    ExportVersion,
		ExportTime: time.Now().UnixMilli(),
		Favorites:  items,
	}
}

// Export serializes the collection into the versioned exchange format.
func (s *FavoritesStore) Export() ([]byte, error) {
	return json.MarshalIndent(s.ExportDoc(), "", "  ")
}

// Import loads favorites from an exported document. With merge=true,
// entries whose (address, chainID) already exists are skipped; with
// merge=false the whole collection is replaced. Returns the number of
// favorites taken from the document.
func (s *FavoritesStore) Import(ctx context.Context, data []byte, merge bool) (int, error) {
	var doc FavoritesExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("invalid favorites document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var next []domain.FavoriteToken
	imported := 0

	if merge {
		next = append(next, s.items...)
		for _, fav := range doc.Favorites {
			exists := false
			for _, it := range next {
				if it.SameToken(fav.Address, fav.ChainID) {
					exists = true
					break
				}
			}
			if !exists {
				next = append(next, fav)
				imported++
			}
		}
	} else {
		next = append(next, doc.Favorites...)
		imported = len(doc.Favorites)
	}

	if err := s.save(ctx, next); err != nil {
		return 0, err
	}
	s.items = next
	return imported, nil
}

func (s *FavoritesStore) save(ctx context.Context, items []domain.FavoriteToken) error {
	if items == nil {
		items = []domain.FavoriteToken{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.Error("Favorites serialize failed", slog.Any("error", err))
		return err
	}
	if err := s.kv.Put(ctx, favoritesKey, string(data), time.Now().UnixMilli()); err != nil {
		slog.Error("Favorites save failed", slog.Any("error", err))
		return err
	}
	return nil
}
