package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
	AlreadyJoined  bool
}

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
}

// BotVoiceStateChangeInput contains the input for handling bot voice state changes.
type BotVoiceStateChangeInput struct {
	GuildID      snowflake.ID
	NewChannelID *snowflake.ID // nil means disconnected
}

// VoiceChannelService handles voice channel operations and owns session lifetime.
type VoiceChannelService struct {
	repo            domain.PlayerStateRepository
	locks           *GuildLocks
	settings        domain.LoopSettingsStore
	voiceConnection ports.VoiceConnection
	voiceState      ports.VoiceStateProvider
	publisher       ports.EventPublisher
}

// NewVoiceChannelService creates a new VoiceChannelService. settings and publisher may be nil.
func NewVoiceChannelService(
	repo domain.PlayerStateRepository,
	locks *GuildLocks,
	settings domain.LoopSettingsStore,
	voiceConnection ports.VoiceConnection,
	voiceState ports.VoiceStateProvider,
	publisher ports.EventPublisher,
) *VoiceChannelService {
	return &VoiceChannelService{
		repo:            repo,
		locks:           locks,
		settings:        settings,
		voiceConnection: voiceConnection,
		voiceState:      voiceState,
		publisher:       publisher,
	}
}

// Join joins the bot to a voice channel. A new session restores the guild's loop
// settings; moving channels keeps the queue.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, err := v.voiceState.UserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if userChannel == nil {
			return nil, ErrUserNotInVoice
		}
		voiceChannelID = *userChannel
	}

	unlock := v.locks.Lock(input.GuildID)
	defer unlock()

	existing := v.repo.Get(input.GuildID)
	if existing != nil && existing.VoiceChannelID() == voiceChannelID {
		if input.NotificationChannelID != 0 {
			existing.SetNotificationChannelID(input.NotificationChannelID)
		}
		return &JoinOutput{VoiceChannelID: voiceChannelID, AlreadyJoined: true}, nil
	}

	if err := v.voiceConnection.JoinChannel(ctx, input.GuildID, voiceChannelID); err != nil {
		return nil, err
	}

	if existing != nil {
		existing.SetVoiceChannelID(voiceChannelID)
		if input.NotificationChannelID != 0 {
			existing.SetNotificationChannelID(input.NotificationChannelID)
		}
	} else {
		queue := domain.NewQueue(ctx, input.GuildID, v.settings)
		v.repo.Save(domain.NewPlayerState(input.GuildID, voiceChannelID, input.NotificationChannelID, queue))
	}

	return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
}

// HandleBotVoiceStateChange reacts to the bot being moved or disconnected by someone else.
func (v *VoiceChannelService) HandleBotVoiceStateChange(input BotVoiceStateChangeInput) {
	unlock := v.locks.Lock(input.GuildID)
	defer unlock()

	state := v.repo.Get(input.GuildID)
	if state == nil {
		return
	}

	if input.NewChannelID == nil {
		publishPlaybackFinished(v.publisher, state)
		v.repo.Delete(input.GuildID)
		return
	}

	if *input.NewChannelID != state.VoiceChannelID() {
		state.SetVoiceChannelID(*input.NewChannelID)
	}
}

// Leave stops playback, leaves the voice channel and ends the session.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) error {
	unlock := v.locks.Lock(input.GuildID)
	defer unlock()

	state := v.repo.Get(input.GuildID)
	if state == nil {
		return ErrNotConnected
	}

	publishPlaybackFinished(v.publisher, state)

	if err := v.voiceConnection.LeaveChannel(ctx, input.GuildID); err != nil {
		return err
	}
	v.repo.Delete(input.GuildID)

	return nil
}
