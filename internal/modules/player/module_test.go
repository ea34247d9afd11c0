package player

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/jockey/internal/bot"
	"github.com/sglre6355/jockey/internal/modules/player/presentation"
)

func TestModule_Name(t *testing.T) {
	m := &Module{}
	if m.Name() != "player" {
		t.Errorf("expected name %q, got %q", "player", m.Name())
	}
}

func TestModule_EveryCommandHasHandler(t *testing.T) {
	m := &Module{handlers: presentation.NewHandlers(nil, nil, nil)}

	handlers := m.CommandHandlers()
	commands := m.Commands()
	if len(handlers) != len(commands) {
		t.Errorf("expected %d handlers, got %d", len(commands), len(handlers))
	}
	for _, cmd := range commands {
		if _, ok := handlers[cmd.Name]; !ok {
			t.Errorf("expected a handler for /%s", cmd.Name)
		}
	}
}

func TestModule_CommandHandlersBeforeInit(t *testing.T) {
	m := &Module{}
	if handlers := m.CommandHandlers(); handlers != nil {
		t.Errorf("expected no handlers before Init, got %d", len(handlers))
	}
}

func TestModule_InitRequiresSession(t *testing.T) {
	tests := []struct {
		name string
		deps bot.ModuleDependencies
	}{
		{name: "no session", deps: bot.ModuleDependencies{}},
		{name: "no user", deps: bot.ModuleDependencies{Session: &discordgo.Session{State: discordgo.NewState()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Module{config: &Config{}}
			if err := m.Init(tt.deps); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestModule_LoadConfig(t *testing.T) {
	setRequiredEnv(t)

	m := &Module{}
	if err := m.LoadConfig(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.config.LavalinkAddress != "localhost:2333" {
		t.Errorf("expected address %q, got %q", "localhost:2333", m.config.LavalinkAddress)
	}
}

func TestModule_VoiceEventsWithoutAdapter(t *testing.T) {
	m := &Module{}

	// Events arriving before Init must be ignored.
	m.handleVoiceServerUpdate(nil, &discordgo.VoiceServerUpdate{GuildID: "1"})
	m.handleVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{GuildID: "1"}})
}

func TestModule_ShutdownBeforeInit(t *testing.T) {
	m := &Module{}
	if err := m.Shutdown(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
