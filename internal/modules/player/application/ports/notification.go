package ports

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// NowPlayingInfo contains information for the "Now Playing" notification.
type NowPlayingInfo struct {
	Identifier       string // provider identifier, e.g. a YouTube video ID
	Title            string
	Artist           string
	Album            string
	Duration         time.Duration
	URI              string
	ArtworkURL       string
	SourceName       string // e.g. "youtube", "deezer", "soundcloud"
	IsImperfectMatch bool
	RequesterID      snowflake.ID
	StartedAt        time.Time
}

// NotificationSender sends notifications to Discord channels.
type NotificationSender interface {
	// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
	SendNowPlaying(channelID snowflake.ID, info *NowPlayingInfo) (messageID snowflake.ID, err error)

	// DeleteMessage deletes a message from the channel.
	DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error

	// SendError sends an error message embed to the channel.
	SendError(channelID snowflake.ID, message string) error
}
