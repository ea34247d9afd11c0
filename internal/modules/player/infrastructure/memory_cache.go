package infrastructure

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// Compile-time checks that the in-memory stores implement their interfaces.
var (
	_ ports.CandidateCache     = (*MemoryCache)(nil)
	_ domain.LoopSettingsStore = (*MemoryLoopSettings)(nil)
)

// Cache keys shared by every CandidateCache implementation.
func handleCacheKey(keyType ports.CacheKeyType, key string) string {
	return "lavalink:" + string(keyType) + ":" + key
}

func mbidCacheKey(contentID string) string { return "mbid:" + contentID }

func isrcCacheKey(contentID string) string { return "isrc:" + contentID }

// MemoryCache is a process-local CandidateCache. Entries live until the process exits.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (c *MemoryCache) get(key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *MemoryCache) set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *MemoryCache) GetHandle(_ context.Context, keyType ports.CacheKeyType, key string) (string, bool, error) {
	return c.get(handleCacheKey(keyType, key))
}

func (c *MemoryCache) SetHandle(_ context.Context, keyType ports.CacheKeyType, key, handle string) error {
	return c.set(handleCacheKey(keyType, key), handle)
}

func (c *MemoryCache) DeleteHandle(_ context.Context, keyType ports.CacheKeyType, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, handleCacheKey(keyType, key))
	return nil
}

func (c *MemoryCache) GetMusicBrainzID(_ context.Context, contentID string) (string, bool, error) {
	return c.get(mbidCacheKey(contentID))
}

func (c *MemoryCache) SetMusicBrainzID(_ context.Context, contentID, mbid string) error {
	return c.set(mbidCacheKey(contentID), mbid)
}

func (c *MemoryCache) GetISRC(_ context.Context, contentID string) (string, bool, error) {
	return c.get(isrcCacheKey(contentID))
}

func (c *MemoryCache) SetISRC(_ context.Context, contentID, isrc string) error {
	return c.set(isrcCacheKey(contentID), isrc)
}

type loopFlags struct {
	one bool
	all bool
}

// MemoryLoopSettings keeps per-guild loop flags for the lifetime of the process.
type MemoryLoopSettings struct {
	mu    sync.RWMutex
	flags map[snowflake.ID]loopFlags
}

// NewMemoryLoopSettings creates an empty MemoryLoopSettings.
func NewMemoryLoopSettings() *MemoryLoopSettings {
	return &MemoryLoopSettings{flags: make(map[snowflake.ID]loopFlags)}
}

func (s *MemoryLoopSettings) LoopOne(_ context.Context, guildID snowflake.ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[guildID].one, nil
}

func (s *MemoryLoopSettings) SetLoopOne(_ context.Context, guildID snowflake.ID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flags[guildID]
	f.one = enabled
	s.flags[guildID] = f
	return nil
}

func (s *MemoryLoopSettings) LoopAll(_ context.Context, guildID snowflake.ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[guildID].all, nil
}

func (s *MemoryLoopSettings) SetLoopAll(_ context.Context, guildID snowflake.ID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flags[guildID]
	f.all = enabled
	s.flags[guildID] = f
	return nil
}
