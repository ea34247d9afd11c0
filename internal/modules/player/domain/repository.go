package domain

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// PlayerStateRepository stores the player state of every connected guild.
type PlayerStateRepository interface {
	// Get returns the PlayerState for the given guild, or nil if none exists.
	Get(guildID snowflake.ID) *PlayerState

	// Save stores the PlayerState, replacing any previous state for the guild.
	Save(state *PlayerState)

	// Delete removes the PlayerState for the given guild.
	Delete(guildID snowflake.ID)
}

// LoopSettingsStore persists the two loop flags of a guild's queue.
type LoopSettingsStore interface {
	LoopOne(ctx context.Context, guildID snowflake.ID) (bool, error)
	SetLoopOne(ctx context.Context, guildID snowflake.ID, enabled bool) error
	LoopAll(ctx context.Context, guildID snowflake.ID) (bool, error)
	SetLoopAll(ctx context.Context, guildID snowflake.ID, enabled bool) error
}
