package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// InteractionHandler handles a Discord interaction and returns a response.
type InteractionHandler func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error

// EventHandler is any function matching one of discordgo's handler signatures,
// e.g. func(s *discordgo.Session, m *discordgo.VoiceStateUpdate).
type EventHandler any

// ModuleDependencies is what a module receives at Init.
type ModuleDependencies struct {
	// Context lives as long as the bot runs. Modules use it for connections
	// they open during Init.
	Context context.Context

	// Session is already open, so Session.State.User is set.
	Session *discordgo.Session
}

// Module is a self-registering unit of commands and event handlers.
type Module interface {
	// Name returns the unique identifier for this module.
	Name() string

	// Commands returns the slash commands that this module provides.
	Commands() []*discordgo.ApplicationCommand

	// CommandHandlers returns a map of command names to their handlers.
	CommandHandlers() map[string]InteractionHandler

	// EventHandlers returns handlers added to the session after Init.
	EventHandlers() []EventHandler

	// Init wires the module against the open session.
	Init(deps ModuleDependencies) error

	// Shutdown releases everything Init acquired.
	Shutdown() error
}

// ConfigurableModule is implemented by modules that read their own configuration.
// LoadConfig runs before the Discord connection is opened, so missing settings
// fail fast.
type ConfigurableModule interface {
	LoadConfig() error
}
