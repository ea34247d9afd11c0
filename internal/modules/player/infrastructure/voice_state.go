package infrastructure

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
)

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)

// VoiceStateProvider provides Discord voice state information from the gateway cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(session *discordgo.Session) *VoiceStateProvider {
	return &VoiceStateProvider{state: session.State}
}

// UserVoiceChannel returns the voice channel the user is in, or nil if the
// user is not connected to voice in the guild.
func (v *VoiceStateProvider) UserVoiceChannel(guildID, userID snowflake.ID) (*snowflake.ID, error) {
	vs, err := v.state.VoiceState(guildID.String(), userID.String())
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if vs.ChannelID == "" {
		return nil, nil
	}

	channelID, err := snowflake.Parse(vs.ChannelID)
	if err != nil {
		return nil, err
	}
	return &channelID, nil
}
