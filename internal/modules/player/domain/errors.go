package domain

import "errors"

var (
	// ErrEmptyQueue is returned when an operation needs at least one item.
	ErrEmptyQueue = errors.New("queue is empty")
	// ErrOutOfRange is returned when an index falls outside the queue.
	ErrOutOfRange = errors.New("index out of range")
	// ErrEndOfQueue is returned when navigation reaches a boundary and looping is off.
	ErrEndOfQueue = errors.New("reached the end of the queue")
	// ErrMoveCurrent is returned when trying to move the now-playing item.
	ErrMoveCurrent = errors.New("cannot move the current item")
	// ErrSamePosition is returned when a move has identical source and destination.
	ErrSamePosition = errors.New("source and destination are the same")
)
