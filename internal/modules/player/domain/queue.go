package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/disgoorg/snowflake/v2"
)

// Queue is the play queue of one guild.
//
// Items are kept in logical (insertion) order. When shuffling, navigation walks the
// perceived order held in a ShuffleOrder instead, so shuffling never rewrites items.
// Positions passed to Insert, Remove and Move are perceived positions, which equal
// logical indices when not shuffling.
//
// Queue performs no locking; callers serialize access per guild.
type Queue struct {
	guildID  snowflake.ID
	settings LoopSettingsStore

	items        []*QueueItem
	order        ShuffleOrder
	currentIndex int
	loopOne      bool
	loopAll      bool

	shuffle func(n int, swap func(i, j int))
}

// NewQueue creates an empty queue for the guild, restoring its loop flags from settings.
func NewQueue(ctx context.Context, guildID snowflake.ID, settings LoopSettingsStore) *Queue {
	q := &Queue{
		guildID:      guildID,
		settings:     settings,
		currentIndex: -1,
		shuffle:      rand.Shuffle,
	}
	if settings == nil {
		return q
	}

	if loopOne, err := settings.LoopOne(ctx, guildID); err != nil {
		slog.Warn("failed to restore loop one setting", "guild", guildID, "error", err)
	} else {
		q.loopOne = loopOne
	}
	if loopAll, err := settings.LoopAll(ctx, guildID); err != nil {
		slog.Warn("failed to restore loop all setting", "guild", guildID, "error", err)
	} else {
		q.loopAll = loopAll
	}

	return q
}

// Len returns the number of items.
func (q *Queue) Len() int {
	return len(q.items)
}

// IsEmpty reports whether the queue has no items.
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}

// IsShuffling reports whether a shuffle order is active.
func (q *Queue) IsShuffling() bool {
	return q.order.Active()
}

// Order returns a copy of the active shuffle order, or nil when not shuffling.
func (q *Queue) Order() ShuffleOrder {
	if !q.order.Active() {
		return nil
	}
	return slices.Clone(q.order)
}

// CurrentIndex returns the logical index of the current item, or -1 if empty.
func (q *Queue) CurrentIndex() int {
	return q.currentIndex
}

// CurrentPerceivedIndex returns the perceived position of the current item, or -1 if empty.
func (q *Queue) CurrentPerceivedIndex() int {
	if q.currentIndex < 0 {
		return -1
	}
	return q.order.Perceived(q.currentIndex)
}

// Current returns the current item.
func (q *Queue) Current() (*QueueItem, error) {
	if len(q.items) == 0 {
		return nil, ErrEmptyQueue
	}
	return q.items[q.currentIndex], nil
}

// At returns the item at the given logical index.
func (q *Queue) At(logical int) (*QueueItem, error) {
	if err := q.checkIndex(logical, len(q.items)); err != nil {
		return nil, err
	}
	return q.items[logical], nil
}

// Items returns the items in logical order.
func (q *Queue) Items() []*QueueItem {
	return slices.Clone(q.items)
}

// PerceivedItems returns the items in the order navigation traverses them.
func (q *Queue) PerceivedItems() []*QueueItem {
	if !q.order.Active() {
		return slices.Clone(q.items)
	}
	out := make([]*QueueItem, len(q.order))
	for pos, idx := range q.order {
		out[pos] = q.items[idx]
	}
	return out
}

// Extend appends items to the end of the queue. While shuffling, the new items are
// appended to the end of the perceived order as well.
func (q *Queue) Extend(items ...*QueueItem) {
	if len(items) == 0 {
		return
	}
	start := len(q.items)
	q.items = append(q.items, items...)
	if start == 0 {
		q.currentIndex = 0
	}
	if q.order.Active() {
		for i := start; i < len(q.items); i++ {
			q.order = append(q.order, i)
		}
	}
}

// Insert places item at the given position. While shuffling, the item is appended in
// logical order and its index is inserted at that position of the perceived order.
func (q *Queue) Insert(item *QueueItem, index int) error {
	size := len(q.items)
	if size == 0 && index != 0 {
		return fmt.Errorf("%w: only position 0 is valid", ErrEmptyQueue)
	}
	if index < 0 || index > size {
		return fmt.Errorf("%w: position %d not in [0, %d]", ErrOutOfRange, index, size)
	}

	if size == 0 {
		q.items = []*QueueItem{item}
		q.currentIndex = 0
		return nil
	}

	if q.order.Active() {
		q.items = append(q.items, item)
		q.order = q.order.insertAt(index, size)
		return nil
	}

	q.items = slices.Insert(q.items, index, item)
	if index <= q.currentIndex {
		q.currentIndex++
	}
	return nil
}

// Remove deletes and returns the item at the given position. Removing the current item
// moves the current index to the item that would play next, or to the previous one when
// the current item is last.
func (q *Queue) Remove(index int) (*QueueItem, error) {
	if len(q.items) == 0 {
		return nil, ErrEmptyQueue
	}
	if err := q.checkIndex(index, len(q.items)); err != nil {
		return nil, err
	}

	logical := q.order.Logical(index)
	next := q.currentIndex
	if logical == q.currentIndex {
		next = q.successor()
	}

	item := q.items[logical]
	q.items = slices.Delete(q.items, logical, logical+1)
	if q.order.Active() {
		q.order = q.order.without(index)
	}

	switch {
	case len(q.items) == 0:
		next = -1
	case next > logical:
		next--
	}
	q.currentIndex = next

	return item, nil
}

// successor picks the logical index that takes over from a removed current item.
// It steps directly instead of going through CalcNextIndex: with loop one on, that
// would return the removed index itself, which is out of bounds once the last item of
// the queue is removed.
func (q *Queue) successor() int {
	if len(q.items) <= 1 {
		return -1
	}
	if next, err := q.Step(q.currentIndex, 1); err == nil {
		return next
	}
	prev, _ := q.Step(q.currentIndex, -1)
	return prev
}

// Move relocates the item at source to dest. The current item cannot be moved.
func (q *Queue) Move(source, dest int) error {
	size := len(q.items)
	if size == 0 {
		return ErrEmptyQueue
	}
	if err := q.checkIndex(source, size); err != nil {
		return err
	}
	if err := q.checkIndex(dest, size); err != nil {
		return err
	}
	if source == dest {
		return ErrSamePosition
	}
	if source == q.CurrentPerceivedIndex() {
		return ErrMoveCurrent
	}

	item, err := q.Remove(source)
	if err != nil {
		return err
	}
	return q.Insert(item, dest)
}

// Shuffle starts a new random perceived order with the current item first.
func (q *Queue) Shuffle() error {
	if len(q.items) == 0 {
		return ErrEmptyQueue
	}

	rest := make([]int, 0, len(q.items)-1)
	for i := range q.items {
		if i != q.currentIndex {
			rest = append(rest, i)
		}
	}
	q.shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	q.order = append(ShuffleOrder{q.currentIndex}, rest...)
	return nil
}

// Unshuffle drops the shuffle order. Logical order is untouched.
func (q *Queue) Unshuffle() {
	q.order = nil
}

// CalcNextIndex returns the logical index delta perceived positions away from the
// current item. Loop one pins the result to the current index.
func (q *Queue) CalcNextIndex(delta int) (int, error) {
	if len(q.items) == 0 {
		return -1, ErrEmptyQueue
	}
	if q.loopOne {
		return q.currentIndex, nil
	}
	return q.Step(q.currentIndex, delta)
}

// Step returns the logical index delta perceived positions away from the logical index
// from, wrapping around when loop all is set. Loop one is not consulted.
func (q *Queue) Step(from, delta int) (int, error) {
	size := len(q.items)
	if size == 0 {
		return -1, ErrEmptyQueue
	}
	if err := q.checkIndex(from, size); err != nil {
		return -1, err
	}

	pos := q.order.Perceived(from) + delta
	switch {
	case pos >= size:
		if !q.loopAll {
			return -1, ErrEndOfQueue
		}
		pos = 0
	case pos < 0:
		if !q.loopAll {
			return -1, ErrEndOfQueue
		}
		pos = size - 1
	}

	return q.order.Logical(pos), nil
}

// Skip advances to the next item and returns it.
func (q *Queue) Skip() (*QueueItem, error) {
	return q.advance(1)
}

// Rewind goes back to the previous item and returns it.
func (q *Queue) Rewind() (*QueueItem, error) {
	return q.advance(-1)
}

func (q *Queue) advance(delta int) (*QueueItem, error) {
	next, err := q.CalcNextIndex(delta)
	if err != nil {
		return nil, err
	}
	q.currentIndex = next
	return q.items[next], nil
}

// SetCurrentIndex moves the current pointer to the given logical index.
func (q *Queue) SetCurrentIndex(logical int) error {
	if len(q.items) == 0 {
		return ErrEmptyQueue
	}
	if err := q.checkIndex(logical, len(q.items)); err != nil {
		return err
	}
	q.currentIndex = logical
	return nil
}

// TruncateTo drops every item whose logical index is size or greater.
func (q *Queue) TruncateTo(size int) {
	if size < 0 {
		size = 0
	}
	if size >= len(q.items) {
		return
	}

	q.items = q.items[:size]
	if q.order.Active() {
		q.order = slices.DeleteFunc(q.order, func(idx int) bool { return idx >= size })
	}
	if q.currentIndex >= size {
		q.currentIndex = size - 1
	}
}

// Clear removes every item and stops shuffling.
func (q *Queue) Clear() {
	q.items = nil
	q.order = nil
	q.currentIndex = -1
}

// LoopOne reports whether the current item repeats.
func (q *Queue) LoopOne() bool {
	return q.loopOne
}

// LoopAll reports whether the queue wraps around at its ends.
func (q *Queue) LoopAll() bool {
	return q.loopAll
}

// SetLoopOne updates the loop one flag and persists it.
func (q *Queue) SetLoopOne(ctx context.Context, enabled bool) {
	q.loopOne = enabled
	if q.settings == nil {
		return
	}
	if err := q.settings.SetLoopOne(ctx, q.guildID, enabled); err != nil {
		slog.Warn("failed to persist loop one setting", "guild", q.guildID, "error", err)
	}
}

// SetLoopAll updates the loop all flag and persists it.
func (q *Queue) SetLoopAll(ctx context.Context, enabled bool) {
	q.loopAll = enabled
	if q.settings == nil {
		return
	}
	if err := q.settings.SetLoopAll(ctx, q.guildID, enabled); err != nil {
		slog.Warn("failed to persist loop all setting", "guild", q.guildID, "error", err)
	}
}

// LoopMode returns the loop mode described by the two flags.
func (q *Queue) LoopMode() LoopMode {
	return loopModeFromFlags(q.loopOne, q.loopAll)
}

// SetLoopMode sets both flags to match mode.
func (q *Queue) SetLoopMode(ctx context.Context, mode LoopMode) {
	loopOne, loopAll := mode.Flags()
	if q.loopOne != loopOne {
		q.SetLoopOne(ctx, loopOne)
	}
	if q.loopAll != loopAll {
		q.SetLoopAll(ctx, loopAll)
	}
}

func (q *Queue) checkIndex(index, size int) error {
	if index < 0 || index >= size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, size)
	}
	return nil
}
