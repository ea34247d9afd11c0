package ports

import (
	"context"
)

// CacheKeyType names the identifier a cached handle is keyed by.
type CacheKeyType string

const (
	CacheKeyContentID CacheKeyType = "content_id"
	CacheKeyISRC      CacheKeyType = "isrc"
)

// CandidateCache stores resolved handles and discovered identifiers. It is shared
// across guilds and must be safe for concurrent use.
type CandidateCache interface {
	// GetHandle returns the cached serialized handle for the key.
	GetHandle(ctx context.Context, keyType CacheKeyType, key string) (string, bool, error)
	SetHandle(ctx context.Context, keyType CacheKeyType, key, handle string) error
	DeleteHandle(ctx context.Context, keyType CacheKeyType, key string) error

	GetMusicBrainzID(ctx context.Context, contentID string) (string, bool, error)
	SetMusicBrainzID(ctx context.Context, contentID, mbid string) error

	GetISRC(ctx context.Context, contentID string) (string, bool, error)
	SetISRC(ctx context.Context, contentID, isrc string) error
}
