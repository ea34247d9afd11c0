package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Rankable is anything that can be scored against a query by title and author.
type Rankable interface {
	RankTitle() string
	RankAuthor() string
}

// CatalogTrack is a track record returned by the music catalog service.
type CatalogTrack struct {
	ID         string
	Title      string
	Artist     string
	Author     string
	Album      string
	Duration   time.Duration
	ISRC       string
	ArtworkURL string
	URL        string
}

func (t CatalogTrack) RankTitle() string  { return t.Title }
func (t CatalogTrack) RankAuthor() string { return t.Author }

// ToQueueItem maps a catalog record onto a new queue item.
func (t CatalogTrack) ToQueueItem(requester snowflake.ID) *QueueItem {
	return &QueueItem{
		Requester:  requester,
		Title:      t.Title,
		Artist:     t.Artist,
		Author:     t.Author,
		Album:      t.Album,
		Duration:   t.Duration,
		SourceURL:  t.URL,
		ArtworkURL: t.ArtworkURL,
		ContentID:  t.ID,
		ISRC:       NormalizeISRC(t.ISRC),
	}
}

// ProviderSearchResult is a track record returned by an audio-search provider.
type ProviderSearchResult struct {
	Title      string
	Author     string
	Duration   time.Duration
	ArtworkURL string
	URI        string
	ISRC       string
	IsStream   bool
	Handle     PlayableHandle
}

func (r ProviderSearchResult) RankTitle() string  { return r.Title }
func (r ProviderSearchResult) RankAuthor() string { return r.Author }

// ToQueueItem maps a provider result onto a new, already resolved queue item.
func (r ProviderSearchResult) ToQueueItem(requester snowflake.ID) *QueueItem {
	handle := r.Handle
	return &QueueItem{
		Requester:  requester,
		Title:      r.Title,
		Artist:     r.Author,
		Author:     r.Author,
		Duration:   r.Duration,
		SourceURL:  r.URI,
		ArtworkURL: r.ArtworkURL,
		ISRC:       NormalizeISRC(r.ISRC),
		Handle:     &handle,
	}
}

// RecordingCandidate is a recording returned by the external recording database.
type RecordingCandidate struct {
	ID           string
	Title        string
	ArtistCredit string
	Length       time.Duration // zero when the database omits it
	ISRCs        []string
	Score        int // the database's own relevance score
}

func (c RecordingCandidate) RankTitle() string  { return c.Title }
func (c RecordingCandidate) RankAuthor() string { return c.ArtistCredit }

// HasISRC reports whether at least one ISRC is attached.
func (c RecordingCandidate) HasISRC() bool {
	return len(c.ISRCs) > 0
}
