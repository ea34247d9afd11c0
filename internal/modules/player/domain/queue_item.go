package domain

import (
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// PlayableHandle is a provider-native reference to a track that can be streamed.
type PlayableHandle struct {
	Encoded    string        `json:"encoded"`
	Identifier string        `json:"identifier,omitempty"`
	URI        string        `json:"uri,omitempty"`
	SourceName string        `json:"source_name,omitempty"`
	Title      string        `json:"title,omitempty"`
	Author     string        `json:"author,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// QueueItem is one logical playback request.
type QueueItem struct {
	Requester snowflake.ID

	Title  string
	Artist string // primary artist
	Author string // all artists, joined
	Album  string

	Duration   time.Duration // zero when unknown
	SourceURL  string
	ArtworkURL string

	// Handle is set once the item has been resolved to something streamable.
	Handle *PlayableHandle

	ContentID     string // catalog track id, used as a cache key
	ISRC          string
	MusicBrainzID string

	IsImperfectMatch bool
	IsAnnotated      bool

	StartedAt time.Time
}

// IsResolved reports whether the item carries a playable handle.
func (i *QueueItem) IsResolved() bool {
	return i.Handle != nil && i.Handle.Encoded != ""
}

// Details returns a title and artist suitable for display and searching,
// falling back to whichever of artist and author is known.
func (i *QueueItem) Details() (title, artist string) {
	title = i.Title
	artist = i.Artist
	if artist == "" {
		artist = i.Author
	}
	if artist == "" && i.Handle != nil {
		artist = i.Handle.Author
	}
	if title == "" && i.Handle != nil {
		title = i.Handle.Title
	}
	if title == "" {
		title = "Unknown title"
	}
	if artist == "" {
		artist = "Unknown artist"
	}
	return title, artist
}

// MetadataQuery returns the "{title} {artist}" search string for the item.
func (i *QueueItem) MetadataQuery() string {
	return strings.TrimSpace(i.Title + " " + i.Artist)
}

// NormalizeISRC upper-cases an ISRC and strips separators.
func NormalizeISRC(isrc string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(isrc), "-", ""))
}
