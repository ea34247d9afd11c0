package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// TrackEndReason represents why a track ended.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the provider could not load the handle.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped by the user.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the track was cleaned up.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldAdvanceQueue returns true if this end reason should advance the queue.
func (r TrackEndReason) ShouldAdvanceQueue() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed
}

// TrackEndedEvent is published when the audio player reports the end of a track.
type TrackEndedEvent struct {
	GuildID snowflake.ID
	Reason  TrackEndReason
}

// PlaybackStartedEvent is published when an item starts playing.
type PlaybackStartedEvent struct {
	GuildID               snowflake.ID
	Item                  *QueueItem
	NotificationChannelID snowflake.ID
}

// PlaybackFinishedEvent is published when playback of an item is over.
// It signals that the "Now Playing" message should be deleted.
type PlaybackFinishedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	LastMessageID         *snowflake.ID
}

// TrackFailedEvent is published when an item could not be played and was skipped.
type TrackFailedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	Title                 string
	Reason                string
}
