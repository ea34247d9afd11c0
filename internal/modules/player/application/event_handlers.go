package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// TrackEndedFunc handles the end of a track for one guild.
type TrackEndedFunc func(ctx context.Context, event domain.TrackEndedEvent)

// PlaybackEventHandler forwards track end events to the playback controller.
type PlaybackEventHandler struct {
	onTrackEnded TrackEndedFunc
	subscriber   ports.EventSubscriber
}

// NewPlaybackEventHandler creates a new PlaybackEventHandler.
func NewPlaybackEventHandler(onTrackEnded TrackEndedFunc, subscriber ports.EventSubscriber) *PlaybackEventHandler {
	return &PlaybackEventHandler{
		onTrackEnded: onTrackEnded,
		subscriber:   subscriber,
	}
}

// Start registers event handlers with the subscriber.
func (h *PlaybackEventHandler) Start() {
	h.subscriber.OnTrackEnded(func(ctx context.Context, event domain.TrackEndedEvent) {
		h.onTrackEnded(ctx, event)
	})
	slog.Debug("playback event handlers registered")
}

// NotificationEventHandler sends and deletes "Now Playing" messages and reports
// items that had to be skipped.
type NotificationEventHandler struct {
	playerStates domain.PlayerStateRepository
	subscriber   ports.EventSubscriber
	notifier     ports.NotificationSender
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	playerStates domain.PlayerStateRepository,
	subscriber ports.EventSubscriber,
	notifier ports.NotificationSender,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		playerStates: playerStates,
		subscriber:   subscriber,
		notifier:     notifier,
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() {
	h.subscriber.OnPlaybackStarted(func(_ context.Context, event domain.PlaybackStartedEvent) {
		h.handlePlaybackStarted(event)
	})
	h.subscriber.OnPlaybackFinished(func(_ context.Context, event domain.PlaybackFinishedEvent) {
		h.handlePlaybackFinished(event)
	})
	h.subscriber.OnTrackFailed(func(_ context.Context, event domain.TrackFailedEvent) {
		h.handleTrackFailed(event)
	})
	slog.Debug("notification event handlers registered")
}

func (h *NotificationEventHandler) handlePlaybackStarted(event domain.PlaybackStartedEvent) {
	state := h.playerStates.Get(event.GuildID)
	if state == nil {
		slog.Debug("skipping now playing notification, state not found", "guild", event.GuildID)
		return
	}

	if old := state.NowPlayingMessage(); old != nil {
		if err := h.notifier.DeleteMessage(old.ChannelID, old.MessageID); err != nil {
			slog.Warn("failed to delete previous now playing message",
				"guild", event.GuildID,
				"message_id", old.MessageID,
				"error", err,
			)
		}
		state.ClearNowPlayingMessage(old.MessageID)
	}

	item := event.Item
	title, artist := item.Details()
	info := &ports.NowPlayingInfo{
		Title:            title,
		Artist:           artist,
		Album:            item.Album,
		Duration:         item.Duration,
		URI:              item.SourceURL,
		ArtworkURL:       item.ArtworkURL,
		IsImperfectMatch: item.IsImperfectMatch,
		RequesterID:      item.Requester,
		StartedAt:        item.StartedAt,
	}
	if item.Handle != nil {
		info.Identifier = item.Handle.Identifier
		info.SourceName = item.Handle.SourceName
		if info.URI == "" {
			info.URI = item.Handle.URI
		}
		if info.Duration == 0 {
			info.Duration = item.Handle.Duration
		}
	}

	messageID, err := h.notifier.SendNowPlaying(event.NotificationChannelID, info)
	if err != nil {
		slog.Error("failed to send now playing notification",
			"guild", event.GuildID,
			"error", err,
		)
		return
	}
	state.SetNowPlayingMessage(&domain.NowPlayingMessage{
		ChannelID: event.NotificationChannelID,
		MessageID: messageID,
	})
}

func (h *NotificationEventHandler) handlePlaybackFinished(event domain.PlaybackFinishedEvent) {
	if event.LastMessageID == nil {
		return
	}

	if err := h.notifier.DeleteMessage(event.NotificationChannelID, *event.LastMessageID); err != nil {
		slog.Warn("failed to delete now playing message",
			"guild", event.GuildID,
			"error", err,
		)
	}

	// Only clear the stored message if it is the one just deleted; a newer one may
	// already have been sent.
	if state := h.playerStates.Get(event.GuildID); state != nil {
		state.ClearNowPlayingMessage(*event.LastMessageID)
	}
}

func (h *NotificationEventHandler) handleTrackFailed(event domain.TrackFailedEvent) {
	if event.NotificationChannelID == 0 {
		return
	}
	message := fmt.Sprintf("Skipped **%s**: %s", event.Title, event.Reason)
	if err := h.notifier.SendError(event.NotificationChannelID, message); err != nil {
		slog.Warn("failed to send track failure notification",
			"guild", event.GuildID,
			"error", err,
		)
	}
}
