package ports

import (
	"context"
	"errors"

	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

var (
	// ErrRecordingNotFound is returned when the database has no such record.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrTimeout is returned when an external call exceeds its deadline.
	ErrTimeout = errors.New("request timed out")
)

// RecordingQuery is a structured recording search.
type RecordingQuery struct {
	Title  string
	Artist string
	Album  string
	Limit  int
}

// RecordingDatabase is an external recording database such as MusicBrainz.
type RecordingDatabase interface {
	SearchRecordings(ctx context.Context, query RecordingQuery) ([]domain.RecordingCandidate, error)
	LookupISRC(ctx context.Context, isrc string) ([]domain.RecordingCandidate, error)
}

// RateLimiter blocks until the caller may make another external call.
type RateLimiter interface {
	Wait(ctx context.Context) error
}
