package domain

import "github.com/disgoorg/snowflake/v2"

// NowPlayingMessage stores the channel and message ID of a "Now Playing" message.
// The channel is kept because the notification channel may change while playing.
type NowPlayingMessage struct {
	ChannelID snowflake.ID
	MessageID snowflake.ID
}
