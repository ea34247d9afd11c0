package ports

import (
	"context"

	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// EventPublisher publishes player events asynchronously.
type EventPublisher interface {
	PublishTrackEnded(event domain.TrackEndedEvent)
	PublishPlaybackStarted(event domain.PlaybackStartedEvent)
	PublishPlaybackFinished(event domain.PlaybackFinishedEvent)
	PublishTrackFailed(event domain.TrackFailedEvent)
}

// EventSubscriber registers handlers for player events.
type EventSubscriber interface {
	OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent))
	OnPlaybackStarted(handler func(context.Context, domain.PlaybackStartedEvent))
	OnPlaybackFinished(handler func(context.Context, domain.PlaybackFinishedEvent))
	OnTrackFailed(handler func(context.Context, domain.TrackFailedEvent))
}
