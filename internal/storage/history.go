package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"tokenscope/internal/domain"
)

const historyKey = "search_history"

// HistoryStore keeps the capped, most-recent-first search history,
// persisted to the KV store on every mutation.
//
// The in-memory slice is only replaced after a successful write, so a
// failed save leaves observable state at the pre-mutation value.
type HistoryStore struct {
	kv    KV
	mu    sync.Mutex
	items []domain.SearchHistoryItem
}

// NewHistoryStore loads the persisted history. Absent or corrupt data
// initializes an empty collection; load never fails the caller.
func NewHistoryStore(ctx context.Context, kv KV) *HistoryStore {
	s := &HistoryStore{kv: kv}

	raw, err := kv.Get(ctx, historyKey)
	if err != nil {
		slog.Warn("History load failed, starting empty", slog.Any("error", err))
		return s
	}
	if raw == "" {
		return s
	}
	if err := json.Unmarshal([]byte(raw), &s.items); err != nil {
		slog.Warn("History parse failed, starting empty", slog.Any("error", err))
		s.items = nil
	}
	return s
}

// Items returns the history, most recent first.
func (s *HistoryStore) Items() []domain.SearchHistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SearchHistoryItem, len(s.items))
	copy(out, s.items)
	return out
}

// Touch records a queried address: an existing entry moves to the
// front with a fresh timestamp, a new one is inserted, entries past
// the cap are dropped.
func (s *HistoryStore) Touch(ctx context.Context, item domain.SearchHistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := domain.TouchHistory(s.items, item)
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.items = next
	return nil
}

// Remove deletes the entry for a normalized address.
func (s *HistoryStore) Remove(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.SearchHistoryItem, 0, len(s.items))
	for _, it := range s.items {
		if it.Address != address {
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

// Clear drops the whole history.
func (s *HistoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, nil); err != nil {
		return err
	}
	s.items = nil
	return nil
}

// Search returns entries matching a case-insensitive substring query
// over address, symbol and name, most recent first.
func (s *HistoryStore) Search(query string) []domain.SearchHistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.SearchHistoryItem
	for _, it := range s.items {
		if it.Matches(query) {
			out = append(out, it)
		}
	}
	return out
}

func (s *HistoryStore) save(ctx context.Context, items []domain.SearchHistoryItem) error {
	if items == nil {
		items = []domain.SearchHistoryItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.Error("History serialize failed", slog.Any("error", err))
		return err
	}
	if err := s.kv.Put(ctx, historyKey, string(data), time.Now().UnixMilli()); err != nil {
		slog.Error("History save failed", slog.Any("error", err))
		return err
	}
	return nil
}
