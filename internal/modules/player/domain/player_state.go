package domain

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// PlayerState is the playback session of one guild: its voice binding and its queue.
type PlayerState struct {
	guildID               snowflake.ID
	voiceChannelID        snowflake.ID
	notificationChannelID snowflake.ID
	isPlaybackActive      bool
	isPaused              bool

	// retried is the item whose load failure has already been retried once.
	retried *QueueItem

	nowPlayingMu sync.Mutex
	nowPlaying   *NowPlayingMessage

	Queue *Queue
}

// NewPlayerState creates a session bound to the given channels around queue.
func NewPlayerState(guildID, voiceChannelID, notificationChannelID snowflake.ID, queue *Queue) *PlayerState {
	return &PlayerState{
		guildID:               guildID,
		voiceChannelID:        voiceChannelID,
		notificationChannelID: notificationChannelID,
		Queue:                 queue,
	}
}

// GuildID returns the guild ID. It never changes after construction.
func (p *PlayerState) GuildID() snowflake.ID {
	return p.guildID
}

// VoiceChannelID returns the voice channel the bot is connected to.
func (p *PlayerState) VoiceChannelID() snowflake.ID {
	return p.voiceChannelID
}

// SetVoiceChannelID updates the voice channel ID.
func (p *PlayerState) SetVoiceChannelID(channelID snowflake.ID) {
	p.voiceChannelID = channelID
}

// NotificationChannelID returns the text channel used for notifications.
func (p *PlayerState) NotificationChannelID() snowflake.ID {
	return p.notificationChannelID
}

// SetNotificationChannelID updates the notification channel ID.
func (p *PlayerState) SetNotificationChannelID(channelID snowflake.ID) {
	p.notificationChannelID = channelID
}

// IsPlaybackActive reports whether something is playing or paused.
func (p *PlayerState) IsPlaybackActive() bool {
	return p.isPlaybackActive
}

// SetPlaybackActive sets whether playback is active. Stopping also clears the pause.
func (p *PlayerState) SetPlaybackActive(active bool) {
	p.isPlaybackActive = active
	if !active {
		p.isPaused = false
	}
}

// IsPaused reports whether playback is paused.
func (p *PlayerState) IsPaused() bool {
	return p.isPaused
}

// SetPaused sets the paused flag.
func (p *PlayerState) SetPaused(paused bool) {
	p.isPaused = paused
}

// NowPlaying returns the current item when playback is active.
func (p *PlayerState) NowPlaying() *QueueItem {
	if !p.isPlaybackActive {
		return nil
	}
	item, err := p.Queue.Current()
	if err != nil {
		return nil
	}
	return item
}

// MarkRetried records that item's failed load is being retried. It returns false
// when item was already retried, in which case the caller should move on.
func (p *PlayerState) MarkRetried(item *QueueItem) bool {
	if p.retried == item {
		return false
	}
	p.retried = item
	return true
}

// ClearRetried forgets the retried item, typically after a successful start.
func (p *PlayerState) ClearRetried() {
	p.retried = nil
}

// NowPlayingMessage returns the current "Now Playing" message, or nil.
func (p *PlayerState) NowPlayingMessage() *NowPlayingMessage {
	p.nowPlayingMu.Lock()
	defer p.nowPlayingMu.Unlock()
	return p.nowPlaying
}

// SetNowPlayingMessage stores the "Now Playing" message.
func (p *PlayerState) SetNowPlayingMessage(msg *NowPlayingMessage) {
	p.nowPlayingMu.Lock()
	defer p.nowPlayingMu.Unlock()
	p.nowPlaying = msg
}

// ClearNowPlayingMessage clears the stored message if it is messageID.
func (p *PlayerState) ClearNowPlayingMessage(messageID snowflake.ID) {
	p.nowPlayingMu.Lock()
	defer p.nowPlayingMu.Unlock()
	if p.nowPlaying != nil && p.nowPlaying.MessageID == messageID {
		p.nowPlaying = nil
	}
}
