package price

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"tokenscope/internal/cache"
	"tokenscope/internal/domain"
	"tokenscope/internal/infra"
)

// subscribeMessage asks the feed for quote pushes on a set of tokens.
type subscribeMessage struct {
	Op     string   `json:"op"`
	Topics []string `json:"topics"`
}

// quoteMessage is one pushed quote. Topic is "<chainID>:<address>".
type quoteMessage struct {
	Topic     string          `json:"topic"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	Change24h decimal.Decimal `json:"change_24h"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	Ts        int64           `json:"ts"` // epoch ms
}

// TokenLister supplies the tokens the feed should subscribe to.
// Re-evaluated on every (re)connect, so favorites added while the
// feed was down are picked up on reconnection.
type TokenLister func() []domain.FavoriteToken

// FeedWorker keeps price entries warm by streaming quotes over a
// websocket and writing them straight into the query cache. Reads with
// a short staleness window then hit the cache instead of the HTTP API.
// The connection reconnects with backoff until Stop.
type FeedWorker struct {
	wsURL  string
	cache  *cache.QueryCache
	tokens TokenLister

	mu     sync.RWMutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ReadTimeout   time.Duration
	PingInterval  time.Duration
	ReconnectBase time.Duration
}

// NewFeedWorker creates a live price feed worker.
func NewFeedWorker(wsURL string, qc *cache.QueryCache, tokens TokenLister) *FeedWorker {
	return &FeedWorker{
		wsURL:         wsURL,
		cache:         qc,
		tokens:        tokens,
		ReadTimeout:   60 * time.Second,
		PingInterval:  30 * time.Second,
		ReconnectBase: time.Second,
	}
}

// Start begins the connection loop.
func (f *FeedWorker) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.runLoop(ctx)
}

// Stop terminates the worker and waits for the loop to exit.
func (f *FeedWorker) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.closeConn()
	f.wg.Wait()
}

func (f *FeedWorker) runLoop(ctx context.Context) {
	defer f.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := f.connect(ctx); err != nil {
			delay := infra.BackoffWithBase(f.ReconnectBase, 60*time.Second, retry)
			slog.Warn("Price feed connect failed",
				slog.Any("error", err),
				slog.Int("retry", retry),
				slog.Duration("delay", delay))
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		f.readQuotes()
	}
}

// connect dials the feed and subscribes to the current token set.
func (f *FeedWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, f.wsURL, header)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	if err := f.subscribe(conn); err != nil {
		f.closeConn()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	if f.PingInterval > 0 {
		go f.pingLoop(ctx)
	}

	slog.Info("Price feed connected", slog.String("url", f.wsURL))
	return nil
}

func (f *FeedWorker) subscribe(conn *websocket.Conn) error {
	favs := f.tokens()
	if len(favs) == 0 {
		return nil // nothing to track yet
	}

	topics := make([]string, 0, len(favs))
	for _, fav := range favs {
		topics = append(topics, fmt.Sprintf("%d:%s", fav.ChainID, fav.Address))
	}

	msg, err := json.Marshal(subscribeMessage{Op: "subscribe", Topics: topics})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// readQuotes consumes pushed quotes until the connection drops.
func (f *FeedWorker) readQuotes() {
	for {
		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("Price feed read error", slog.Any("error", err))
			f.closeConn()
			return
		}

		f.handleQuote(msg)
	}
}

// handleQuote pushes one received quote into the cache.
func (f *FeedWorker) handleQuote(msg []byte) {
	var q quoteMessage
	if err := json.Unmarshal(msg, &q); err != nil {
		slog.Warn("Malformed feed message", slog.Any("error", err))
		return
	}

	chainID, address, err := parseTopic(q.Topic)
	if err != nil {
		slog.Warn("Malformed feed topic", slog.String("topic", q.Topic))
		return
	}

	quote := &domain.PriceQuote{
		Address:   address,
		ChainID:   chainID,
		PriceUSD:  q.PriceUSD,
		Change24h: q.Change24h,
		MarketCap: q.MarketCap,
		Volume24h: q.Volume24h,
		FetchedAt: time.UnixMilli(q.Ts),
	}
	f.cache.Put(cache.NewKey(address, chainID, domain.FieldPrice), quote)
}

func (f *FeedWorker) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(f.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.RLock()
			conn := f.conn
			f.mu.RUnlock()
			if conn == nil {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Warn("Price feed ping error", slog.Any("error", err))
				f.closeConn()
				return
			}
		}
	}
}

func (f *FeedWorker) closeConn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}

func parseTopic(topic string) (int64, string, error) {
	chainPart, address, ok := strings.Cut(topic, ":")
	if !ok {
		return 0, "", fmt.Errorf("bad topic: %q", topic)
	}
	chainID, err := strconv.ParseInt(chainPart, 10, 64)
	if err != nil {
		return 0, "", err
	}
	return chainID, address, nil
}
