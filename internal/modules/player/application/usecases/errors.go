package usecases

import (
	"errors"
	"fmt"
)

// Errors of the player module.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when trying to pause while already paused.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrIsCurrentTrack is returned when trying to remove the currently playing track.
	ErrIsCurrentTrack = errors.New("cannot remove current track, use skip instead")

	// ErrNoResults is returned when a query yields no candidates.
	ErrNoResults = errors.New("no results found")

	// ErrUnsupportedSource is returned for URLs of providers that cannot be played.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrInvalidIdentifier is returned when a provider URL cannot be resolved.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNoPlayableMatch is returned when no provider has a stream for a queue item.
	ErrNoPlayableMatch = errors.New("no playable match")

	// ErrNoPlayableTracks is returned when auto-advance runs out of items to try.
	ErrNoPlayableTracks = errors.New("no playable tracks left in the queue")
)

// UserError is a failure with a message meant to be shown to the requester as-is.
// It matches its Kind with errors.Is.
type UserError struct {
	Kind    error
	Message string
	Err     error
}

func newUserError(kind error, message string, cause error) *UserError {
	return &UserError{Kind: kind, Message: message, Err: cause}
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ResolutionError reports a query that could not be turned into playable items.
// Retryable is true when playback was already running, so the session stays usable.
// When false, nothing is playing and the caller should tear the session down.
type ResolutionError struct {
	Query     string
	Retryable bool
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %q: %v", e.Query, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a retryable resolution failure.
func IsRetryable(err error) bool {
	var resErr *ResolutionError
	return errors.As(err, &resErr) && resErr.Retryable
}

// UserMessage returns the message to show for err, falling back to err itself.
func UserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	return err.Error()
}
