package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

const DefaultPageSize = 10

// EnqueueInput contains the input for the Enqueue use case.
type EnqueueInput struct {
	GuildID               snowflake.ID
	Query                 string
	RequesterID           snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// EnqueueOutput contains the result of the Enqueue use case.
type EnqueueOutput struct {
	Kind       domain.QueryKind
	ListName   string
	Items      []*domain.QueueItem
	Position   int               // 0-indexed position of the first new item
	NowPlaying *domain.QueueItem // set when this call started playback
}

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID               snowflake.ID
	Page                  int          // 1-indexed page number
	PageSize              int          // Items per page (optional, defaults to 10)
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueEntry is one row of a queue listing.
type QueueEntry struct {
	Position  int // 0-indexed position as shown to users
	Item      *domain.QueueItem
	IsCurrent bool
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	NowPlaying      *domain.QueueItem // nil when nothing is playing
	CurrentPosition int               // -1 when nothing is playing
	Entries         []QueueEntry
	TotalItems      int
	CurrentPage     int
	TotalPages      int
	IsShuffling     bool
	LoopMode        string
}

// QueueRemoveInput contains the input for the QueueRemove use case.
type QueueRemoveInput struct {
	GuildID               snowflake.ID
	Position              int          // 0-indexed position as shown to users
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueRemoveOutput contains the result of the QueueRemove use case.
type QueueRemoveOutput struct {
	RemovedItem *domain.QueueItem
}

// QueueMoveInput contains the input for the QueueMove use case.
type QueueMoveInput struct {
	GuildID               snowflake.ID
	From                  int // 0-indexed
	To                    int // 0-indexed
	NotificationChannelID snowflake.ID
}

// QueueGuildInput contains the input for use cases that only need the guild.
type QueueGuildInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueClearOutput contains the result of the QueueClear use case.
type QueueClearOutput struct {
	ClearedCount int
}

// QueueService handles queue operations.
type QueueService struct {
	repo     domain.PlayerStateRepository
	locks    *GuildLocks
	resolver QueryResolver
	playback *PlaybackService
}

// NewQueueService creates a new QueueService.
func NewQueueService(
	repo domain.PlayerStateRepository,
	locks *GuildLocks,
	resolver QueryResolver,
	playback *PlaybackService,
) *QueueService {
	return &QueueService{
		repo:     repo,
		locks:    locks,
		resolver: resolver,
		playback: playback,
	}
}

// Enqueue resolves the query, appends the items and starts playback when idle.
//
// Failures are reported as *ResolutionError. A failure is retryable when something
// was already playing; otherwise the queue is rolled back to its previous contents and
// the caller should treat the session as unusable.
func (q *QueueService) Enqueue(ctx context.Context, input EnqueueInput) (*EnqueueOutput, error) {
	if q.repo.Get(input.GuildID) == nil {
		return nil, ErrNotConnected
	}

	// Resolution talks to external services, so it runs without holding the guild.
	resolved, resolveErr := q.resolver.Resolve(ctx, ResolveQueryInput{
		Query:       input.Query,
		RequesterID: input.RequesterID,
	})

	unlock := q.locks.Lock(input.GuildID)
	defer unlock()

	state, err := lookupState(q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}
	wasActive := state.IsPlaybackActive()

	if resolveErr != nil {
		return nil, &ResolutionError{Query: input.Query, Retryable: wasActive, Err: resolveErr}
	}
	if len(resolved.Items) == 0 {
		return nil, &ResolutionError{Query: input.Query, Retryable: wasActive, Err: ErrNoResults}
	}

	oldSize := state.Queue.Len()
	oldIndex := state.Queue.CurrentIndex()
	state.Queue.Extend(resolved.Items...)

	out := &EnqueueOutput{
		Kind:     resolved.Kind,
		ListName: resolved.ListName,
		Items:    resolved.Items,
		Position: oldSize,
	}
	if wasActive {
		return out, nil
	}

	// Only the new items are candidates; loop all must not wrap back to old ones.
	item, err := q.playback.playFrom(ctx, state, oldSize, 1, oldSize)
	if err != nil {
		state.Queue.TruncateTo(oldSize)
		if oldSize > 0 {
			if err := state.Queue.SetCurrentIndex(oldIndex); err != nil {
				slog.Warn("failed to restore current index", "guild", input.GuildID, "error", err)
			}
		}
		return nil, &ResolutionError{Query: input.Query, Retryable: false, Err: err}
	}
	out.NowPlaying = item

	return out, nil
}

// List returns the queue in the order it plays, one page at a time.
func (q *QueueService) List(input QueueListInput) (*QueueListOutput, error) {
	unlock := q.locks.Lock(input.GuildID)
	defer unlock()

	state, err := lookupState(q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}

	items := state.Queue.PerceivedItems()
	totalItems := len(items)
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	page = min(page, totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, totalItems)

	current := -1
	if state.IsPlaybackActive() {
		current = state.Queue.CurrentPerceivedIndex()
	}
	var entries []QueueEntry
	for pos := start; pos < end; pos++ {
		entries = append(entries, QueueEntry{
			Position:  pos,
			Item:      items[pos],
			IsCurrent: pos == current,
		})
	}

	return &QueueListOutput{
		NowPlaying:      state.NowPlaying(),
		CurrentPosition: current,
		Entries:         entries,
		TotalItems:      totalItems,
		CurrentPage:     page,
		TotalPages:      totalPages,
		IsShuffling:     state.Queue.IsShuffling(),
		LoopMode:        state.Queue.LoopMode().String(),
	}, nil
}

// Remove removes the item at the given position. The playing item must be skipped
// instead.
func (q *QueueService) Remove(input QueueRemoveInput) (*QueueRemoveOutput, error) {
	unlock := q.locks.Lock(input.GuildID)
	defer unlock()

	state, err := lookupState(q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}
	if state.IsPlaybackActive() && input.Position == state.Queue.CurrentPerceivedIndex() {
		return nil, ErrIsCurrentTrack
	}

	item, err := state.Queue.Remove(input.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to remove position %d: %w", input.Position, err)
	}

	return &QueueRemoveOutput{RemovedItem: item}, nil
}

// Move moves an item to another position.
func (q *QueueService) Move(input QueueMoveInput) error {
	unlock := q.locks.Lock(input.GuildID)
	defer unlock()

	state, err := lookupState(q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	if err := state.Queue.Move(input.From, input.To); err != nil {
		return fmt.Errorf("failed to move %d to %d: %w", input.From, input.To, err)
	}
	return nil
}

// Shuffle shuffles the play order, keeping the current item in place.
func (q *QueueService) Shuffle(input QueueGuildInput) error {
	unlock := q.locks.Lock(input.GuildID)
	defer unlock()

	state, err := lookupState(q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	return state.Queue.Shuffle()
}

// Unshuffle restores insertion order.
func (q *QueueService) Unshuffle(input QueueGuildInput) error {
	unlock := q.locks.Lock(input.GuildID)
	defer unlock()

	state, err := lookupState(q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	state.Queue.Unshuffle()
	return nil
}

// Clear stops playback and removes every item.
func (q *QueueService) Clear(ctx context.Context, input QueueGuildInput) (*QueueClearOutput, error) {
	unlock := q.locks.Lock(input.GuildID)
	defer unlock()

	state, err := lookupState(q.repo, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}
	if state.Queue.IsEmpty() {
		return nil, domain.ErrEmptyQueue
	}

	if state.IsPlaybackActive() {
		if err := q.playback.player.Stop(ctx, input.GuildID); err != nil {
			return nil, err
		}
		q.playback.finishPlayback(state)
	}
	count := state.Queue.Len()
	state.Queue.Clear()

	return &QueueClearOutput{ClearedCount: count}, nil
}
