package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
)

const (
	DefaultPoolIdleTTL     = 5 * time.Minute
	DefaultCleanupInterval = 1 * time.Minute
	DefaultMaxPools        = 32
	DefaultPoolMaxConns    = 4
)

// PoolCacheConfig holds configuration for the pool cache.
type PoolCacheConfig struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	MaxPools        int
	MaxOpenConns    int
}

// PoolCache keeps one database/sql pool per engine and connection URI so
// repeated catalog browsing does not redial. Idle pools are closed after
// IdleTTL. Keys are hashes; URIs and their passwords are not retained.
//
// A pool handed out by Acquire is never closed until it is released, even
// if it is evicted in the meantime.
type PoolCache struct {
	mu       sync.Mutex
	pools    map[uint64]*cachedPool
	ttl      time.Duration
	maxPools int
	maxOpen  int
	stopped  bool
	stopChan chan struct{}
	logger   *zap.Logger

	open func(Introspectable, string) (*sql.DB, error)
}

type cachedPool struct {
	db       *sql.DB
	engine   string
	lastUsed time.Time
	refs     int
	retired  bool // removed from the map; close on last release
}

// NewPoolCache creates a cache and starts its cleanup goroutine, which runs
// until Close is called.
func NewPoolCache(cfg PoolCacheConfig, logger *zap.Logger) *PoolCache {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultPoolIdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.MaxPools <= 0 {
		cfg.MaxPools = DefaultMaxPools
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultPoolMaxConns
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &PoolCache{
		pools:    make(map[uint64]*cachedPool),
		ttl:      cfg.IdleTTL,
		maxPools: cfg.MaxPools,
		maxOpen:  cfg.MaxOpenConns,
		stopChan: make(chan struct{}),
		logger:   logger.Named("pools"),
		open:     Open,
	}
	go c.cleanupLoop(cfg.CleanupInterval)
	return c
}

func poolKey(engine, uri string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(engine)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(uri)
	return d.Sum64()
}

// Acquire returns the pool for uri, opening one if needed, and a release
// func the caller must call once it is done with the pool. When the cache is
// full the least recently used idle pool is closed to make room; if every
// pool is in use the cache grows past MaxPools until some are released.
func (c *PoolCache) Acquire(spec EngineSpec, uri string) (*sql.DB, func(), error) {
	intro, ok := spec.(Introspectable)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", spec.Engine(), apperrors.ErrIntrospectionUnsupported)
	}
	key := poolKey(spec.Engine(), uri)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil, nil, fmt.Errorf("pool cache is closed")
	}
	cached, ok := c.pools[key]
	if !ok {
		for len(c.pools) >= c.maxPools && c.evictOldestLocked() {
		}

		db, err := c.open(intro, uri)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(c.maxOpen)
		db.SetConnMaxIdleTime(c.ttl)

		cached = &cachedPool{db: db, engine: spec.Engine()}
		c.pools[key] = cached
		c.logger.Debug("Opened pool",
			zap.String("engine", spec.Engine()),
			zap.Int("pools", len(c.pools)))
	}
	cached.lastUsed = time.Now()
	cached.refs++

	var once sync.Once
	release := func() { once.Do(func() { c.release(cached) }) }
	return cached.db, release, nil
}

// Inspect is datasource.Inspect over a cached pool. A pool that fails its
// ping is evicted so the next call redials.
func (c *PoolCache) Inspect(ctx context.Context, spec EngineSpec, uri string, fn func(Inspector) error) error {
	db, release, err := c.Acquire(spec, uri)
	if err != nil {
		return err
	}
	defer release()

	if err := db.PingContext(ctx); err != nil {
		c.Evict(spec.Engine(), uri)
		return fmt.Errorf("failed to connect: %w", err)
	}
	return fn(NewSQLInspector(db, spec.(Introspectable).InspectorQueries()))
}

// Evict forgets the pool for uri. It is closed now, or on its last release
// if it is in use.
func (c *PoolCache) Evict(engine, uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(poolKey(engine, uri))
}

func (c *PoolCache) release(cached *cachedPool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached.refs--
	cached.lastUsed = time.Now()
	if cached.retired && cached.refs == 0 {
		_ = cached.db.Close()
	}
}

// Len reports how many pools are open.
func (c *PoolCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pools)
}

func (c *PoolCache) removeLocked(key uint64) {
	cached, ok := c.pools[key]
	if !ok {
		return
	}
	delete(c.pools, key)
	if cached.refs > 0 {
		cached.retired = true
		return
	}
	_ = cached.db.Close()
}

// evictOldestLocked closes the least recently used pool that nobody holds.
// It reports false when every pool is held.
func (c *PoolCache) evictOldestLocked() bool {
	var (
		oldestKey uint64
		oldest    *cachedPool
	)
	for key, cached := range c.pools {
		if cached.refs > 0 {
			continue
		}
		if oldest == nil || cached.lastUsed.Before(oldest.lastUsed) {
			oldestKey, oldest = key, cached
		}
	}
	if oldest == nil {
		c.logger.Debug("All pools in use, growing past limit", zap.Int("pools", len(c.pools)))
		return false
	}
	c.logger.Debug("Evicting least recently used pool", zap.String("engine", oldest.engine))
	c.removeLocked(oldestKey)
	return true
}

func (c *PoolCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.performCleanup(time.Now())
		case <-c.stopChan:
			return
		}
	}
}

// performCleanup closes unheld pools idle for longer than the TTL.
func (c *PoolCache) performCleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	expired := 0
	for key, cached := range c.pools {
		if cached.refs == 0 && now.Sub(cached.lastUsed) > c.ttl {
			c.removeLocked(key)
			expired++
		}
	}
	if expired > 0 {
		c.logger.Info("Closed idle pools",
			zap.Int("count", expired),
			zap.Int("remaining", len(c.pools)))
	}
}

// Close closes every pool and stops the cleanup goroutine. Pools still held
// are closed when released. It is safe to call more than once.
func (c *PoolCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil
	}
	c.stopped = true
	close(c.stopChan)

	for key := range c.pools {
		c.removeLocked(key)
	}
	return nil
}
