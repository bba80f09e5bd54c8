package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"tokenscope/internal/cache"
	"tokenscope/internal/infra"
	"tokenscope/internal/infra/chain"
	"tokenscope/internal/infra/price"
	"tokenscope/internal/query"
	"tokenscope/internal/storage"
	"tokenscope/internal/telemetry"
)

// Bootstrap holds every wired component of a running instance.
// Constructed explicitly at startup; there are no package-level
// singletons, tests build their own.
type Bootstrap struct {
	Config    *infra.Config
	Store     *storage.Store
	History   *storage.HistoryStore
	Favorites *storage.FavoritesStore
	Backups   *storage.BackupManager
	Cache     *cache.QueryCache
	Telemetry *telemetry.Aggregator
	Chains    *chain.Registry
	Prices    *price.Client
	Feed      *price.FeedWorker
	Service   *query.Service

	unlock func()
}

// NewBootstrap creates an empty Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, DB, dirs).
func (b *Bootstrap) Initialize() error {
	// 1. Load Config (Dynamic Path Resolution)
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	slog.Info("🚀 Bootstrapping Tokenscope...")

	// 3. Workspace layout: _workspace/data and _workspace/backups
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data")
	backupDir := filepath.Join(workDir, "backups")

	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := infra.EnsureDir(backupDir); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	// 3.1 Singleton Instance Lock
	// Two processes sharing the same SQLite file would corrupt it.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Open the KV store (WAL mode)
	dbPath := filepath.Join(dataDir, "tokenscope.db")
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Store initialized (WAL-mode)", "path", dbPath)

	// 5. Load user collections
	ctx := context.Background()
	b.History = storage.NewHistoryStore(ctx, store)
	b.Favorites = storage.NewFavoritesStore(ctx, store)
	b.Backups = storage.NewBackupManager(backupDir)
	slog.Info("✅ Collections loaded",
		"history", len(b.History.Items()),
		"favorites", b.Favorites.Len())

	// 6. Telemetry and query cache
	b.Telemetry = telemetry.New(cfg.App.Name, infra.DefaultUserAgent)
	qc, err := cache.New(cacheConfigFrom(cfg), b.Telemetry)
	if err != nil {
		return err
	}
	b.Cache = qc

	// 7. External collaborators
	b.Chains = chain.NewRegistry(cfg.Chains)
	b.Prices = price.NewClient(
		cfg.PriceAPI.BaseURL,
		cfg.PriceAPI.APIKey,
		cfg.PriceAPI.PerSecond,
		cfg.PriceAPI.TimeoutSec,
	)
	slog.Info("✅ Collaborators ready", "chains", len(cfg.Chains))

	// 8. Query orchestrator
	b.Service = query.NewService(
		b.Cache,
		func(chainID int64) (query.ChainReader, error) {
			c, err := b.Chains.Client(chainID)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		b.Prices,
		b.History,
		b.Telemetry,
	)

	if cfg.PriceAPI.WSURL != "" {
		b.Feed = price.NewFeedWorker(cfg.PriceAPI.WSURL, b.Cache, b.Favorites.Items)
	}

	return nil
}

// StartFeed starts the live price feed when one is configured.
func (b *Bootstrap) StartFeed(ctx context.Context) {
	if b.Feed == nil {
		slog.Info("No price feed configured, relying on HTTP quotes")
		return
	}
	b.Feed.Start(ctx)
	slog.Info("✅ Price feed started", "url", b.Config.PriceAPI.WSURL)
}

// Warm pre-queries favorite tokens so the first lookups after startup
// are served from cache.
func (b *Bootstrap) Warm(ctx context.Context) {
	favs := b.Favorites.Items()
	if len(favs) == 0 {
		return
	}

	slog.Info("🔄 Warming cache from favorites", "count", len(favs))
	for _, fav := range favs {
		fav := fav
		go func() {
			if _, err := b.Service.Token(ctx, fav.Address, fav.ChainID); err != nil {
				slog.Debug("Warm query failed",
					slog.String("address", fav.Address),
					slog.Any("error", err))
			}
		}()
	}
}

// BackupFavorites writes a timestamped favorites backup and prunes old
// ones.
func (b *Bootstrap) BackupFavorites(keep int) error {
	if _, err := b.Backups.Save(b.Favorites.ExportDoc()); err != nil {
		return err
	}
	return b.Backups.Cleanup(keep)
}

// Shutdown stops workers and releases resources.
func (b *Bootstrap) Shutdown() {
	if b.Feed != nil {
		b.Feed.Stop()
	}
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("Store close failed", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
	slog.Info("👋 Tokenscope stopped")
}

// cacheConfigFrom translates file configuration into cache policy,
// falling back on the documented defaults per category.
func cacheConfigFrom(cfg *infra.Config) cache.Config {
	c := cache.DefaultConfig()
	if cfg.Cache.MetadataStaleMin > 0 {
		c.Metadata.StaleTime = time.Duration(cfg.Cache.MetadataStaleMin) * time.Minute
	}
	if cfg.Cache.SupplyStaleMin > 0 {
		c.Supply.StaleTime = time.Duration(cfg.Cache.SupplyStaleMin) * time.Minute
	}
	if cfg.Cache.BalanceStaleSec > 0 {
		c.Balance.StaleTime = time.Duration(cfg.Cache.BalanceStaleSec) * time.Second
	}
	if cfg.Cache.PriceStaleSec > 0 {
		c.Price.StaleTime = time.Duration(cfg.Cache.PriceStaleSec) * time.Second
	}
	return c
}
