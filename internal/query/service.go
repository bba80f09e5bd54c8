package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tokenscope/internal/cache"
	"tokenscope/internal/domain"
	"tokenscope/internal/storage"
	"tokenscope/internal/telemetry"
)

// ChainReader reads ERC-20 fields from one chain.
type ChainReader interface {
	Symbol(ctx context.Context, address string) (string, error)
	Name(ctx context.Context, address string) (string, error)
	Decimals(ctx context.Context, address string) (int, error)
	TotalSupply(ctx context.Context, address string) (decimal.Decimal, error)
	BalanceOf(ctx context.Context, token, holder string) (decimal.Decimal, error)
}

// ReaderResolver returns the reader for a chain ID.
type ReaderResolver func(chainID int64) (ChainReader, error)

// PriceSource serves market data for tokens.
type PriceSource interface {
	Quote(ctx context.Context, chainID int64, address string) (*domain.PriceQuote, error)
	History(ctx context.Context, chainID int64, address string, window domain.PriceWindow) ([]domain.PricePoint, error)
}

// Service orchestrates token queries: validation, cached concurrent
// reads, history recording and telemetry.
type Service struct {
	cache   *cache.QueryCache
	readers ReaderResolver
	prices  PriceSource
	history *storage.HistoryStore
	perf    *telemetry.Aggregator
}

// NewService wires the query orchestrator. history and perf may be nil
// in harnesses that only need raw reads.
func NewService(qc *cache.QueryCache, readers ReaderResolver, prices PriceSource, history *storage.HistoryStore, perf *telemetry.Aggregator) *Service {
	return &Service{
		cache:   qc,
		readers: readers,
		prices:  prices,
		history: history,
		perf:    perf,
	}
}

// Token resolves the metadata aggregate for one token. The four field
// reads are issued concurrently through the cache; a field whose read
// fails is left at its zero value. An error is returned only when the
// address is invalid, the chain is unknown, or every field failed.
func (s *Service) Token(ctx context.Context, address string, chainID int64) (*domain.TokenMetadata, error) {
	addr, err := domain.ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	reader, err := s.readers(chainID)
	if err != nil {
		return nil, err
	}

	m := s.measure("query-token")
	defer m.End()

	meta := &domain.TokenMetadata{Address: addr, ChainID: chainID}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
		lastErr  error
	)

	read := func(field domain.Field, fetch cache.Fetcher, assign func(any)) {
		defer wg.Done()
		v, err := s.cache.Get(ctx, cache.NewKey(addr, chainID, field), fetch)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures++
			lastErr = err
			slog.Warn("Token field read failed",
				slog.String("address", addr),
				slog.String("field", string(field)),
				slog.Any("error", err))
			return
		}
		assign(v)
	}

	wg.Add(4)
	go read(domain.FieldSymbol,
		func(ctx context.Context) (any, error) { return reader.Symbol(ctx, addr) },
		func(v any) { meta.Symbol = v.(string) })
	go read(domain.FieldName,
		func(ctx context.Context) (any, error) { return reader.Name(ctx, addr) },
		func(v any) { meta.Name = v.(string) })
	go read(domain.FieldDecimals,
		func(ctx context.Context) (any, error) { return reader.Decimals(ctx, addr) },
		func(v any) { meta.Decimals = v.(int) })
	go read(domain.FieldTotalSupply,
		func(ctx context.Context) (any, error) { return reader.TotalSupply(ctx, addr) },
		func(v any) { meta.TotalSupply = v.(decimal.Decimal) })
	wg.Wait()

	if failures == len(domain.MetadataFields) {
		return nil, fmt.Errorf("token %s unreachable on chain %d: %w", addr, chainID, lastErr)
	}

	meta.FetchedAt = time.Now()
	s.touchHistory(ctx, meta)
	return meta, nil
}

// Balance reads a holder's token balance through the cache.
func (s *Service) Balance(ctx context.Context, token, holder string, chainID int64) (decimal.Decimal, error) {
	tokenAddr, err := domain.ValidateAddress(token)
	if err != nil {
		return decimal.Zero, err
	}
	holderAddr, err := domain.ValidateAddress(holder)
	if err != nil {
		return decimal.Zero, err
	}

	reader, err := s.readers(chainID)
	if err != nil {
		return decimal.Zero, err
	}

	m := s.measure("query-balance")
	defer m.End()

	key := cache.NewKey(tokenAddr, chainID, domain.BalanceField(holderAddr))
	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		return reader.BalanceOf(ctx, tokenAddr, holderAddr)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// Price returns the current market quote for a token through the cache.
func (s *Service) Price(ctx context.Context, address string, chainID int64) (*domain.PriceQuote, error) {
	addr, err := domain.ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	m := s.measure("query-price")
	defer m.End()

	key := cache.NewKey(addr, chainID, domain.FieldPrice)
	v, err := s.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		return s.prices.Quote(ctx, chainID, addr)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.PriceQuote), nil
}

// PriceHistory returns a bucketed price series. Series are not cached:
// the upstream buckets them per request and a window change would miss
// anyway.
func (s *Service) PriceHistory(ctx context.Context, address string, chainID int64, window domain.PriceWindow) ([]domain.PricePoint, error) {
	addr, err := domain.ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	m := s.measure("query-price-history")
	defer m.End()

	return s.prices.History(ctx, chainID, addr, window)
}

// Refresh drops every cached field of a token and refetches the
// metadata aggregate.
func (s *Service) Refresh(ctx context.Context, address string, chainID int64) (*domain.TokenMetadata, error) {
	addr, err := domain.ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	dropped := s.cache.InvalidateToken(addr, chainID)
	slog.Debug("Token refresh", slog.String("address", addr), slog.Int("dropped", dropped))

	return s.Token(ctx, addr, chainID)
}

func (s *Service) touchHistory(ctx context.Context, meta *domain.TokenMetadata) {
	if s.history == nil {
		return
	}
	item := domain.NewSearchHistoryItem(meta.Address, meta.ChainID, meta.Symbol, meta.Name)
	if err := s.history.Touch(ctx, item); err != nil {
		slog.Warn("History touch failed", slog.Any("error", err))
	}
}

// measure starts a latency measurement, or a no-op when telemetry is
// disabled.
func (s *Service) measure(name string) *telemetry.Measurement {
	if s.perf == nil {
		return nil
	}
	return s.perf.Measure(name, telemetry.KindNetwork)
}
