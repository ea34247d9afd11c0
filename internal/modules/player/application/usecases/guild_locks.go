package usecases

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// GuildLocks serializes operations on the same guild. Different guilds never block
// each other. A single GuildLocks must be shared by every service touching a guild.
type GuildLocks struct {
	mu    sync.Mutex
	locks map[snowflake.ID]*sync.Mutex
}

// NewGuildLocks creates a new GuildLocks.
func NewGuildLocks() *GuildLocks {
	return &GuildLocks{
		locks: make(map[snowflake.ID]*sync.Mutex),
	}
}

// Lock locks the guild and returns the function that unlocks it.
func (g *GuildLocks) Lock(guildID snowflake.ID) (unlock func()) {
	g.mu.Lock()
	l, ok := g.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[guildID] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}
