package storage

import (
	"context"
	"errors"
	"testing"

	"tokenscope/internal/domain"
)

const (
	daiAddr  = "0x6b175474e89094c44da98b954eedeac495271d0f"
	usdcAddr = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

func TestFavoritesStore_AddRejectsDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fs := NewFavoritesStore(ctx, store)

	fav := domain.NewFavoriteToken(daiAddr, 1, "FOO", "Foo Token", 18)
	if err := fs.Add(ctx, fav); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Same (address, chainID): rejected, collection unchanged.
	dup := domain.NewFavoriteToken(daiAddr, 1, "FOO", "Foo Token", 18)
	if err := fs.Add(ctx, dup); !errors.Is(err, domain.ErrDuplicateFavorite) {
		t.Errorf("Expected ErrDuplicateFavorite, got %v", err)
	}
	if fs.Len() != 1 {
		t.Errorf("Len = %d; want 1", fs.Len())
	}

	// Same address on another chain is a distinct token.
	if err := fs.Add(ctx, domain.NewFavoriteToken(daiAddr, 137, "FOO", "Foo Token", 18)); err != nil {
		t.Errorf("Add on other chain failed: %v", err)
	}
	if fs.Len() != 2 {
		t.Errorf("Len = %d; want 2", fs.Len())
	}
}

func TestFavoritesStore_Reload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fs := NewFavoritesStore(ctx, store)
	fav := domain.NewFavoriteToken(daiAddr, 1, "DAI", "Dai Stablecoin", 18)
	fav.Tags = []string{"stablecoin"}
	if err := fs.Add(ctx, fav); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	fs2 := NewFavoritesStore(ctx, store)
	items := fs2.Items()
	if len(items) != 1 {
		t.Fatalf("Expected 1 favorite after reload, got %d", len(items))
	}
	if items[0].ID != fav.ID || len(items[0].Tags) != 1 {
		t.Errorf("Reloaded favorite = %+v", items[0])
	}
}

func TestFavoritesStore_Update(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fs := NewFavoritesStore(ctx, store)

	fs.Add(ctx, domain.NewFavoriteToken(daiAddr, 1, "DAI", "Dai Stablecoin", 18))

	note := "watch closely"
	got, err := fs.Update(ctx, daiAddr, 1, domain.FavoriteUpdate{Note: &note})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Note != note {
		t.Errorf("Note = %q; want %q", got.Note, note)
	}

	if _, err := fs.Update(ctx, usdcAddr, 1, domain.FavoriteUpdate{Note: &note}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing favorite, got %v", err)
	}
}

func TestFavoritesStore_RemoveAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fs := NewFavoritesStore(ctx, store)

	dai := domain.NewFavoriteToken(daiAddr, 1, "DAI", "Dai Stablecoin", 18)
	dai.Tags = []string{"stablecoin"}
	usdc := domain.NewFavoriteToken(usdcAddr, 1, "USDC", "USD Coin", 6)
	usdc.Note = "reserve asset"
	fs.Add(ctx, dai)
	fs.Add(ctx, usdc)

	if got := fs.Search("stablecoin"); len(got) != 1 || got[0].Symbol != "DAI" {
		t.Errorf("Search(stablecoin) = %+v", got)
	}
	if got := fs.Search("reserve"); len(got) != 1 || got[0].Symbol != "USDC" {
		t.Errorf("Search(reserve) = %+v", got)
	}

	if err := fs.Remove(ctx, daiAddr, 1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := fs.Remove(ctx, daiAddr, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Second remove: expected ErrNotFound, got %v", err)
	}
	if fs.Len() != 1 {
		t.Errorf("Len = %d; want 1", fs.Len())
	}
}

func TestFavoritesStore_ExportImportMerge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fs := NewFavoritesStore(ctx, store)

	fav := domain.NewFavoriteToken(daiAddr, 1, "FOO", "Foo Token", 18)
	if err := fs.Add(ctx, fav); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	data, err := fs.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Import with merge into an empty store: exactly the original entry.
	empty := NewFavoritesStore(ctx, newTestStore(t))
	imported, err := empty.Import(ctx, data, true)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported != 1 || empty.Len() != 1 {
		t.Fatalf("imported=%d len=%d; want 1/1", imported, empty.Len())
	}
	got := empty.Items()[0]
	if got.ID != fav.ID || got.Address != fav.Address || got.Symbol != fav.Symbol {
		t.Errorf("Imported favorite differs: %+v vs %+v", got, fav)
	}

	// Merging the same document again skips the duplicate.
	imported, err = empty.Import(ctx, data, true)
	if err != nil {
		t.Fatalf("Second import failed: %v", err)
	}
	if imported != 0 || empty.Len() != 1 {
		t.Errorf("Duplicate merge: imported=%d len=%d; want 0/1", imported, empty.Len())
	}
}

func TestFavoritesStore_ImportReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fs := NewFavoritesStore(ctx, store)

	fs.Add(ctx, domain.NewFavoriteToken(daiAddr, 1, "DAI", "Dai Stablecoin", 18))
	fs.Add(ctx, domain.NewFavoriteToken(usdcAddr, 1, "USDC", "USD Coin", 6))

	other := NewFavoritesStore(ctx, newTestStore(t))
	other.Add(ctx, domain.NewFavoriteToken("0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", 1, "WBTC", "Wrapped BTC", 8))
	doc, _ := other.Export()

	imported, err := fs.Import(ctx, doc, false)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported != 1 || fs.Len() != 1 {
		t.Errorf("Replace import: imported=%d len=%d; want 1/1", imported, fs.Len())
	}
	if fs.Items()[0].Symbol != "WBTC" {
		t.Errorf("Replace must drop prior favorites")
	}
}

func TestFavoritesStore_SaveFailureLeavesStateUnchanged(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fs := NewFavoritesStore(ctx, store)

	fs.Add(ctx, domain.NewFavoriteToken(daiAddr, 1, "DAI", "Dai Stablecoin", 18))

	fs.kv = &failingKV{KV: store}
	err := fs.Add(ctx, domain.NewFavoriteToken(usdcAddr, 1, "USDC", "USD Coin", 6))
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("Expected errDiskFull, got %v", err)
	}
	if fs.Len() != 1 {
		t.Errorf("Failed save must not change state; len=%d", fs.Len())
	}
}
