package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

// topic is one event type's channel and its handlers. Events of one topic are
// delivered in publish order by a single dispatcher goroutine.
type topic[E any] struct {
	name     string
	events   chan E
	mu       sync.RWMutex
	handlers []func(context.Context, E)
}

func newTopic[E any](name string, bufferSize int) *topic[E] {
	return &topic[E]{
		name:   name,
		events: make(chan E, bufferSize),
	}
}

func (t *topic[E]) subscribe(handler func(context.Context, E)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// publish never blocks. When the buffer is full the event is dropped with a warning.
func (t *topic[E]) publish(event E) {
	select {
	case t.events <- event:
		slog.Debug("published event", "type", t.name)
	default:
		slog.Warn("event buffer full, dropping event", "type", t.name)
	}
}

func (t *topic[E]) dispatch(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-t.events:
			if !ok {
				return
			}
			t.mu.RLock()
			handlers := t.handlers
			t.mu.RUnlock()
			for _, handler := range handlers {
				t.run(ctx, handler, event)
			}
		}
	}
}

// run calls one handler, logging a panic instead of killing the dispatcher.
func (t *topic[E]) run(ctx context.Context, handler func(context.Context, E), event E) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "type", t.name, "panic", r)
		}
	}()
	handler(ctx, event)
}

// ChannelEventBus provides a channel-based event bus for async event handling.
// It implements both EventPublisher and EventSubscriber interfaces.
type ChannelEventBus struct {
	trackEnded       *topic[domain.TrackEndedEvent]
	playbackStarted  *topic[domain.PlaybackStartedEvent]
	playbackFinished *topic[domain.PlaybackFinishedEvent]
	trackFailed      *topic[domain.TrackFailedEvent]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		trackEnded:       newTopic[domain.TrackEndedEvent]("TrackEnded", bufferSize),
		playbackStarted:  newTopic[domain.PlaybackStartedEvent]("PlaybackStarted", bufferSize),
		playbackFinished: newTopic[domain.PlaybackFinishedEvent]("PlaybackFinished", bufferSize),
		trackFailed:      newTopic[domain.TrackFailedEvent]("TrackFailed", bufferSize),
		ctx:              ctx,
		cancel:           cancel,
	}

	bus.wg.Add(4)
	go bus.trackEnded.dispatch(ctx, &bus.wg)
	go bus.playbackStarted.dispatch(ctx, &bus.wg)
	go bus.playbackFinished.dispatch(ctx, &bus.wg)
	go bus.trackFailed.dispatch(ctx, &bus.wg)

	return bus
}

// isClosed must be called with b.mu held.
func (b *ChannelEventBus) isClosed(eventType string) bool {
	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", eventType)
	}
	return b.closed
}

// --- EventPublisher interface ---

// PublishTrackEnded publishes a TrackEndedEvent.
func (b *ChannelEventBus) PublishTrackEnded(event domain.TrackEndedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isClosed(b.trackEnded.name) {
		b.trackEnded.publish(event)
	}
}

// PublishPlaybackStarted publishes a PlaybackStartedEvent.
func (b *ChannelEventBus) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isClosed(b.playbackStarted.name) {
		b.playbackStarted.publish(event)
	}
}

// PublishPlaybackFinished publishes a PlaybackFinishedEvent.
func (b *ChannelEventBus) PublishPlaybackFinished(event domain.PlaybackFinishedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isClosed(b.playbackFinished.name) {
		b.playbackFinished.publish(event)
	}
}

// PublishTrackFailed publishes a TrackFailedEvent.
func (b *ChannelEventBus) PublishTrackFailed(event domain.TrackFailedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isClosed(b.trackFailed.name) {
		b.trackFailed.publish(event)
	}
}

// --- EventSubscriber interface ---

// OnTrackEnded registers a handler for TrackEndedEvent.
func (b *ChannelEventBus) OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent)) {
	b.trackEnded.subscribe(handler)
}

// OnPlaybackStarted registers a handler for PlaybackStartedEvent.
func (b *ChannelEventBus) OnPlaybackStarted(handler func(context.Context, domain.PlaybackStartedEvent)) {
	b.playbackStarted.subscribe(handler)
}

// OnPlaybackFinished registers a handler for PlaybackFinishedEvent.
func (b *ChannelEventBus) OnPlaybackFinished(handler func(context.Context, domain.PlaybackFinishedEvent)) {
	b.playbackFinished.subscribe(handler)
}

// OnTrackFailed registers a handler for TrackFailedEvent.
func (b *ChannelEventBus) OnTrackFailed(handler func(context.Context, domain.TrackFailedEvent)) {
	b.trackFailed.subscribe(handler)
}

// Close closes all event channels and stops dispatchers.
// After calling Close, publishing will no longer send events.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()

	close(b.trackEnded.events)
	close(b.playbackStarted.events)
	close(b.playbackFinished.events)
	close(b.trackFailed.events)

	b.wg.Wait()

	slog.Debug("channel event bus closed")
}
