package player

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/bot"
	"github.com/sglre6355/jockey/internal/modules/player/application"
	"github.com/sglre6355/jockey/internal/modules/player/application/usecases"
	"github.com/sglre6355/jockey/internal/modules/player/infrastructure"
	"github.com/sglre6355/jockey/internal/modules/player/presentation"
)

func init() {
	bot.Register(&Module{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*Module)(nil)

// Module provides music playback commands.
type Module struct {
	config          *Config
	handlers        *presentation.Handlers
	voiceChannel    *usecases.VoiceChannelService
	lavalinkAdapter *infrastructure.LavalinkAdapter
	stack           *Stack

	// Event-driven components
	eventBus            *infrastructure.ChannelEventBus
	playbackHandler     *application.PlaybackEventHandler
	notificationHandler *application.NotificationEventHandler
}

// Name returns the module name.
func (m *Module) Name() string {
	return "player"
}

// Commands returns the slash commands for this module.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return presentation.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	if m.handlers == nil {
		return nil
	}
	return map[string]bot.InteractionHandler{
		"join":      m.handlers.HandleJoin,
		"leave":     m.handlers.HandleLeave,
		"play":      m.handlers.HandlePlay,
		"stop":      m.handlers.HandleStop,
		"pause":     m.handlers.HandlePause,
		"resume":    m.handlers.HandleResume,
		"skip":      m.handlers.HandleSkip,
		"rewind":    m.handlers.HandleRewind,
		"shuffle":   m.handlers.HandleShuffle,
		"unshuffle": m.handlers.HandleUnshuffle,
		"queue":     m.handlers.HandleQueue,
		"loop":      m.handlers.HandleLoop,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *Module) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *Module) LoadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module. The session must already be open so the bot's
// user ID is known.
func (m *Module) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil || deps.Session.State == nil || deps.Session.State.User == nil {
		return errors.New("player module requires an open Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}

	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		return err
	}

	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// Create Lavalink adapter
	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(ctx, deps.Session, botID, infrastructure.LavalinkConfig{
		NodeName:      m.config.LavalinkNodeName,
		Address:       m.config.LavalinkAddress,
		Password:      m.config.LavalinkPassword,
		Secure:        m.config.LavalinkSecure,
		SearchTimeout: m.config.ProviderTimeout,
	})
	if err != nil {
		return err
	}
	m.lavalinkAdapter = lavalinkAdapter

	// Create event bus (needed by Lavalink adapter for publishing events)
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)
	lavalinkAdapter.SetEventPublisher(m.eventBus)

	stack, err := NewStack(ctx, m.config, lavalinkAdapter)
	if err != nil {
		return err
	}
	m.stack = stack

	// Create infrastructure
	repo := infrastructure.NewMemoryRepository()
	locks := usecases.NewGuildLocks()
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session)

	// Create services with event bus
	playback := usecases.NewPlaybackService(repo, locks, stack.Finder, lavalinkAdapter, m.eventBus)
	queue := usecases.NewQueueService(repo, locks, stack.Resolver, playback)
	m.voiceChannel = usecases.NewVoiceChannelService(
		repo,
		locks,
		stack.Settings,
		lavalinkAdapter,
		voiceState,
		m.eventBus,
	)

	// Create application event handlers
	m.playbackHandler = application.NewPlaybackEventHandler(playback.OnTrackEnded, m.eventBus)
	m.notificationHandler = application.NewNotificationEventHandler(repo, m.eventBus, notifier)
	m.playbackHandler.Start()
	m.notificationHandler.Start()

	m.handlers = presentation.NewHandlers(m.voiceChannel, playback, queue)

	slog.Info("player module initialized",
		"spotify", m.config.SpotifyEnabled(),
		"deezer", m.config.DeezerEnabled,
		"persistent", m.config.DatabasePath != "",
	)

	return nil
}

// Shutdown cleans up module resources.
func (m *Module) Shutdown() error {
	// Close event bus first so no handler runs against closed adapters
	if m.eventBus != nil {
		m.eventBus.Close()
	}

	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}

	if m.stack != nil {
		return m.stack.Close()
	}

	return nil
}

// Event handlers.

func (m *Module) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceServerUpdate(event)
	}
}

func (m *Module) handleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalinkAdapter == nil {
		return
	}
	guildID, channelID, ok := m.lavalinkAdapter.OnVoiceStateUpdate(event)
	if !ok {
		return
	}
	m.voiceChannel.HandleBotVoiceStateChange(usecases.BotVoiceStateChangeInput{
		GuildID:      guildID,
		NewChannelID: channelID,
	})
}
