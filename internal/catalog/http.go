package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shopsync/internal/model"
)

// DefaultCacheTTL is used when HTTP cache headers don't specify a duration.
const DefaultCacheTTL = 5 * time.Minute

// DefaultFetchTimeout is the timeout for fetching a product.
const DefaultFetchTimeout = 5 * time.Second

// MaxCacheEntries limits the number of cached products (LRU eviction).
const MaxCacheEntries = 1000

// HTTPConfig configures an HTTPLookup.
type HTTPConfig struct {
	BaseURL      string        // Catalog API root; products live at {BaseURL}/product/{id}
	CacheTTL     time.Duration // Default TTL when not specified by cache headers
	FetchTimeout time.Duration // HTTP timeout when HTTPClient is nil
	MaxEntries   int           // Max cache entries (0 = default)
	HTTPClient   *http.Client
}

// HTTPLookup fetches product records over HTTP with caching.
// Respects Cache-Control max-age, Expires and ETag revalidation. Concurrent
// lookups of the same id share one request.
type HTTPLookup struct {
	baseURL    string
	client     *http.Client
	config     HTTPConfig
	group      singleflight.Group
	cache      map[model.ProductID]*cacheEntry
	cacheMu    sync.RWMutex
	accessList []model.ProductID // LRU tracking: most recent at end
}

type cacheEntry struct {
	product   model.ProductRecord
	missing   bool // cached 404
	expiresAt time.Time
	etag      string
}

// NewHTTPLookup creates a catalog lookup against config.BaseURL.
func NewHTTPLookup(config HTTPConfig) (*HTTPLookup, error) {
	u, err := url.Parse(config.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid catalog URL %q", config.BaseURL)
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = MaxCacheEntries
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.FetchTimeout}
	}

	return &HTTPLookup{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		client:     client,
		config:     config,
		cache:      make(map[model.ProductID]*cacheEntry),
		accessList: make([]model.ProductID, 0, config.MaxEntries),
	}, nil
}

// Product retrieves a product record, using cache when possible.
// If the cached entry is fresh, it is returned immediately.
// If it is stale, the lookup revalidates with ETag.
// On fetch failure with a stale cache, the stale record is returned.
func (l *HTTPLookup) Product(ctx context.Context, id model.ProductID) (model.ProductRecord, error) {
	if id == "" {
		return model.ProductRecord{}, ErrNotFound
	}

	l.cacheMu.RLock()
	entry, exists := l.cache[id]
	l.cacheMu.RUnlock()

	if exists && entry.expiresAt.After(time.Now()) {
		l.recordAccess(id)
		return entry.result()
	}

	v, err, _ := l.group.Do(string(id), func() (any, error) {
		return l.fetchFromNetwork(ctx, id, entry)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ProductRecord{}, ErrNotFound
		}
		if exists && !entry.missing {
			return entry.product, nil
		}
		return model.ProductRecord{}, fmt.Errorf("fetch product %s: %w", id, err)
	}
	return v.(model.ProductRecord), nil
}

func (e *cacheEntry) result() (model.ProductRecord, error) {
	if e.missing {
		return model.ProductRecord{}, ErrNotFound
	}
	return e.product, nil
}

func (l *HTTPLookup) fetchFromNetwork(ctx context.Context, id model.ProductID, staleEntry *cacheEntry) (model.ProductRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/product/"+url.PathEscape(string(id)), nil)
	if err != nil {
		return model.ProductRecord{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	// Conditional request if we have an ETag from a previous fetch
	if staleEntry != nil && staleEntry.etag != "" {
		req.Header.Set("If-None-Match", staleEntry.etag)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return model.ProductRecord{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && staleEntry != nil {
		l.updateCacheEntry(id, staleEntry.product, staleEntry.missing, resp)
		return staleEntry.result()
	}

	if resp.StatusCode == http.StatusNotFound {
		l.updateCacheEntry(id, model.ProductRecord{}, true, resp)
		return model.ProductRecord{}, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return model.ProductRecord{}, fmt.Errorf("unexpected status %d for product %s", resp.StatusCode, id)
	}

	// Limit to 1MB
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.ProductRecord{}, fmt.Errorf("read body: %w", err)
	}

	product, err := decodeProduct(body)
	if err != nil {
		return model.ProductRecord{}, err
	}
	if product.ID == "" {
		product.ID = id
	}

	l.updateCacheEntry(id, product, false, resp)
	return product, nil
}

// decodeProduct accepts a bare record or one wrapped as {"product": {...}}.
func decodeProduct(body []byte) (model.ProductRecord, error) {
	var wrapped struct {
		Product *model.ProductRecord `json:"product"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Product != nil {
		return *wrapped.Product, nil
	}

	var product model.ProductRecord
	if err := json.Unmarshal(body, &product); err != nil {
		return model.ProductRecord{}, fmt.Errorf("parse product JSON: %w", err)
	}
	return product, nil
}

func (l *HTTPLookup) updateCacheEntry(id model.ProductID, product model.ProductRecord, missing bool, resp *http.Response) {
	entry := &cacheEntry{
		product:   product,
		missing:   missing,
		expiresAt: time.Now().Add(l.parseCacheTTL(resp)),
		etag:      resp.Header.Get("ETag"),
	}

	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()

	if _, exists := l.cache[id]; !exists && len(l.cache) >= l.config.MaxEntries {
		l.evictOldest()
	}

	l.cache[id] = entry
	l.recordAccessLocked(id)
}

// parseCacheTTL extracts TTL from HTTP cache headers.
// Priority: max-age in Cache-Control, then Expires header, then default.
func (l *HTTPLookup) parseCacheTTL(resp *http.Response) time.Duration {
	if cc := resp.Header.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.TrimSpace(directive)
			if directive == "no-store" || directive == "no-cache" {
				return 0
			}
			if strings.HasPrefix(directive, "max-age=") {
				if seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age=")); err == nil && seconds >= 0 {
					return time.Duration(seconds) * time.Second
				}
			}
		}
	}

	if expires := resp.Header.Get("Expires"); expires != "" {
		if t, err := http.ParseTime(expires); err == nil {
			if ttl := time.Until(t); ttl > 0 {
				return ttl
			}
		}
	}

	return l.config.CacheTTL
}

func (l *HTTPLookup) recordAccess(id model.ProductID) {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	l.recordAccessLocked(id)
}

func (l *HTTPLookup) recordAccessLocked(id model.ProductID) {
	for i, v := range l.accessList {
		if v == id {
			l.accessList = append(l.accessList[:i], l.accessList[i+1:]...)
			break
		}
	}
	l.accessList = append(l.accessList, id)
}

func (l *HTTPLookup) evictOldest() {
	if len(l.accessList) == 0 {
		return
	}
	oldest := l.accessList[0]
	l.accessList = l.accessList[1:]
	delete(l.cache, oldest)
}

// ClearCache removes all cached entries.
func (l *HTTPLookup) ClearCache() {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	l.cache = make(map[model.ProductID]*cacheEntry)
	l.accessList = make([]model.ProductID, 0, l.config.MaxEntries)
}

// Len returns the number of cached entries.
func (l *HTTPLookup) Len() int {
	l.cacheMu.RLock()
	defer l.cacheMu.RUnlock()
	return len(l.cache)
}
