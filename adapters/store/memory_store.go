package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// expiryHeaderSize is the length of the unix-nano expiry prepended to every value
const expiryHeaderSize = 8

// MemoryConfig sizes the two caches behind a MemoryStore.
// Entries with 0 < ttl <= ShortWindow go to the short cache, everything else to the long one,
// so expired challenges are dropped after ShortWindow instead of lingering for the record retention.
type MemoryConfig struct {
	ShortWindow time.Duration
	LongWindow  time.Duration
	// MaxSizeMB caps each cache; once reached the oldest entries are overwritten
	MaxSizeMB int
}

// DefaultMemoryConfig fits the default challenge and result ttls
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		ShortWindow: time.Minute,
		LongWindow:  24 * time.Hour,
		MaxSizeMB:   64,
	}
}

// MemoryStore is an in-process implementation of the Store interface backed by BigCache.
// Entries without a ttl live until the long cache's window evicts them.
type MemoryStore struct {
	short *bigcache.BigCache
	long  *bigcache.BigCache

	longWindow  time.Duration
	shortWindow time.Duration
	now         func() time.Time

	// guards Set and Take so a take never observes half of a replace
	mu sync.Mutex
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(ctx context.Context, cfg MemoryConfig, opts ...MemoryOption) (ports.Store, error) {
	if cfg.ShortWindow <= 0 || cfg.LongWindow < cfg.ShortWindow {
		return nil, fmt.Errorf("invalid memory windows short=%s long=%s", cfg.ShortWindow, cfg.LongWindow)
	}
	if cfg.MaxSizeMB <= 0 {
		return nil, errors.New("memory store size cap must be positive")
	}

	short, err := newCache(ctx, cfg.ShortWindow, cfg.MaxSizeMB)
	if err != nil {
		return nil, err
	}
	long, err := newCache(ctx, cfg.LongWindow, cfg.MaxSizeMB)
	if err != nil {
		short.Close()
		return nil, err
	}

	s := &MemoryStore{
		short:       short,
		long:        long,
		shortWindow: cfg.ShortWindow,
		longWindow:  cfg.LongWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// newCache rounds window up to whole seconds since BigCache evicts at one second resolution
func newCache(ctx context.Context, window time.Duration, maxSizeMB int) (*bigcache.BigCache, error) {
	lifeWindow := window.Truncate(time.Second)
	if lifeWindow < window {
		lifeWindow += time.Second
	}

	config := bigcache.DefaultConfig(lifeWindow)
	config.Shards = 64
	config.MaxEntriesInWindow = 10000
	config.MaxEntrySize = 512
	config.CleanWindow = min(max(lifeWindow/2, time.Second), time.Minute)
	config.HardMaxCacheSize = maxSizeMB
	config.Verbose = false

	cache, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return cache, nil
}

// Set stores value with expiration. A zero ttl never expires.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 || ttl > s.longWindow {
		return core.ErrInvalidTTL
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}

	entry := make([]byte, expiryHeaderSize+len(value))
	binary.BigEndian.PutUint64(entry, uint64(expiresAt))
	copy(entry[expiryHeaderSize:], value)

	target, other := s.long, s.short
	if ttl > 0 && ttl <= s.shortWindow {
		target, other = s.short, s.long
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := target.Set(key, entry); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, errors.Join(core.ErrStoreUnavailable, err))
	}
	if err := other.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("failed to replace %s: %w", key, errors.Join(core.ErrStoreUnavailable, err))
	}

	return nil
}

// Get retrieves a value by key
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, value, err := s.lookup(key)
	return value, err
}

// Take retrieves and deletes a value
func (s *MemoryStore) Take(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, value, err := s.lookup(key)
	if err != nil {
		return nil, err
	}

	if err := cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, fmt.Errorf("failed to delete %s: %w", key, errors.Join(core.ErrStoreUnavailable, err))
	}

	return value, nil
}

// lookup finds key in either cache. Set keeps at most one copy.
func (s *MemoryStore) lookup(key string) (*bigcache.BigCache, []byte, error) {
	for _, cache := range []*bigcache.BigCache{s.short, s.long} {
		entry, err := cache.Get(key)
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			continue
		}
		value, err := s.unwrap(key, entry, err)
		return cache, value, err
	}
	return nil, nil, core.ErrNotFound
}

// unwrap strips the expiry header, treating expired entries as absent
func (s *MemoryStore) unwrap(key string, entry []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, errors.Join(core.ErrStoreUnavailable, err))
	}

	if len(entry) < expiryHeaderSize {
		return nil, core.ErrNotFound
	}

	expiresAt := int64(binary.BigEndian.Uint64(entry))
	if expiresAt != 0 && s.now().UnixNano() >= expiresAt {
		return nil, core.ErrNotFound
	}

	value := make([]byte, len(entry)-expiryHeaderSize)
	copy(value, entry[expiryHeaderSize:])
	return value, nil
}

// Close stops the cleanup goroutines of both caches
func (s *MemoryStore) Close() error {
	return errors.Join(s.short.Close(), s.long.Close())
}
