package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/bot"
	"github.com/sglre6355/jockey/internal/modules/player/application/usecases"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

// VoiceChannel joins and leaves voice channels.
type VoiceChannel interface {
	Join(ctx context.Context, input usecases.JoinInput) (*usecases.JoinOutput, error)
	Leave(ctx context.Context, input usecases.LeaveInput) error
}

// Playback controls what is playing.
type Playback interface {
	Pause(ctx context.Context, input usecases.PauseInput) error
	Resume(ctx context.Context, input usecases.ResumeInput) error
	Stop(ctx context.Context, input usecases.StopInput) error
	Skip(ctx context.Context, input usecases.SkipInput) (*usecases.SkipOutput, error)
	Rewind(ctx context.Context, input usecases.SkipInput) (*usecases.SkipOutput, error)
	SkipTo(ctx context.Context, input usecases.SkipToInput) (*domain.QueueItem, error)
	SetLoopMode(ctx context.Context, input usecases.SetLoopModeInput) error
	CycleLoopMode(ctx context.Context, input usecases.CycleLoopModeInput) (*usecases.CycleLoopModeOutput, error)
}

// Queue edits and lists the queue.
type Queue interface {
	Enqueue(ctx context.Context, input usecases.EnqueueInput) (*usecases.EnqueueOutput, error)
	List(input usecases.QueueListInput) (*usecases.QueueListOutput, error)
	Remove(input usecases.QueueRemoveInput) (*usecases.QueueRemoveOutput, error)
	Move(input usecases.QueueMoveInput) error
	Shuffle(input usecases.QueueGuildInput) error
	Unshuffle(input usecases.QueueGuildInput) error
	Clear(ctx context.Context, input usecases.QueueGuildInput) (*usecases.QueueClearOutput, error)
}

var (
	_ VoiceChannel = (*usecases.VoiceChannelService)(nil)
	_ Playback     = (*usecases.PlaybackService)(nil)
	_ Queue        = (*usecases.QueueService)(nil)
)

// Handlers holds all the command handlers.
type Handlers struct {
	voiceChannel VoiceChannel
	playback     Playback
	queue        Queue
}

// NewHandlers creates new Handlers.
func NewHandlers(voiceChannel VoiceChannel, playback Playback, queue Queue) *Handlers {
	return &Handlers{
		voiceChannel: voiceChannel,
		playback:     playback,
		queue:        queue,
	}
}

// interactionContext holds the IDs every command needs.
type interactionContext struct {
	guildID   snowflake.ID
	channelID snowflake.ID
	userID    snowflake.ID
}

// parseInteraction returns the message to respond with when the interaction
// lacks a guild, channel or member.
func parseInteraction(i *discordgo.InteractionCreate) (ic interactionContext, problem string) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return ic, "This command can only be used in a server"
	}
	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return ic, "Invalid notification channel"
	}
	if i.Member == nil || i.Member.User == nil {
		return ic, "Invalid user"
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return ic, "Invalid user"
	}

	ic.guildID = guildID
	ic.channelID = channelID
	ic.userID = userID
	return ic, ""
}

// HandleJoin handles the /join command.
func (h *Handlers) HandleJoin(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var voiceChannelID snowflake.ID
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "channel" {
			id, err := snowflake.Parse(opt.ChannelValue(nil).ID)
			if err != nil {
				return respondError(r, "Invalid voice channel")
			}
			voiceChannelID = id
		}
	}

	output, err := h.voiceChannel.Join(context.Background(), usecases.JoinInput{
		GuildID:               ic.guildID,
		UserID:                ic.userID,
		NotificationChannelID: ic.channelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	if output.AlreadyJoined {
		return respondSuccess(r, fmt.Sprintf("Already connected to <#%d>.", output.VoiceChannelID))
	}
	return respondSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID))
}

// HandleLeave handles the /leave command.
func (h *Handlers) HandleLeave(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	if err := h.voiceChannel.Leave(context.Background(), usecases.LeaveInput{GuildID: ic.guildID}); err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, "Disconnected.")
}

// HandlePlay handles the /play command. Resolution can be slow, so the
// interaction is deferred first.
func (h *Handlers) HandlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	if err := r.Defer(); err != nil {
		return err
	}

	// 1. Join the requester's channel, or just update the notification channel
	if _, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               ic.guildID,
		UserID:                ic.userID,
		NotificationChannelID: ic.channelID,
	}); err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	// 2. Resolve and enqueue, starting playback when idle
	output, err := h.queue.Enqueue(ctx, usecases.EnqueueInput{
		GuildID:               ic.guildID,
		Query:                 query,
		RequesterID:           ic.userID,
		NotificationChannelID: ic.channelID,
	})
	if err != nil {
		var resErr *usecases.ResolutionError
		if errors.As(err, &resErr) && !resErr.Retryable {
			// Nothing is playing, so the session has nothing left to do.
			if leaveErr := h.voiceChannel.Leave(ctx, usecases.LeaveInput{GuildID: ic.guildID}); leaveErr != nil &&
				!errors.Is(leaveErr, usecases.ErrNotConnected) {
				slog.Warn("failed to leave after fatal enqueue", "guild", ic.guildID, "error", leaveErr)
			}
		}
		slog.Info("enqueue failed", "guild", ic.guildID, "query", query, "error", err)
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, enqueueDescription(output))
}

func enqueueDescription(output *usecases.EnqueueOutput) string {
	if len(output.Items) > 1 || output.ListName != "" {
		name := output.ListName
		if name == "" {
			name = output.Kind.String()
		}
		return fmt.Sprintf("Added **%d tracks** from **%s** to the queue.", len(output.Items), name)
	}

	if output.NowPlaying != nil {
		return "Now playing " + itemLink(output.NowPlaying) + "."
	}
	return fmt.Sprintf("Added %s to the queue at position %d.", itemLink(output.Items[0]), output.Position+1)
}

// HandleStop handles the /stop command.
func (h *Handlers) HandleStop(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	if err := h.playback.Stop(context.Background(), usecases.StopInput{
		GuildID:               ic.guildID,
		NotificationChannelID: ic.channelID,
	}); err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, "Stopped playback.")
}

// HandlePause handles the /pause command.
func (h *Handlers) HandlePause(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	if err := h.playback.Pause(context.Background(), usecases.PauseInput{
		GuildID:               ic.guildID,
		NotificationChannelID: ic.channelID,
	}); err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *Handlers) HandleResume(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	if err := h.playback.Resume(context.Background(), usecases.ResumeInput{
		GuildID:               ic.guildID,
		NotificationChannelID: ic.channelID,
	}); err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, "Resumed playback.")
}

// HandleSkip handles the /skip command.
func (h *Handlers) HandleSkip(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleStep(i, r, h.playback.Skip, "Skipped")
}

// HandleRewind handles the /rewind command.
func (h *Handlers) HandleRewind(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleStep(i, r, h.playback.Rewind, "Rewound")
}

func (h *Handlers) handleStep(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	step func(context.Context, usecases.SkipInput) (*usecases.SkipOutput, error),
	verb string,
) error {
	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	output, err := step(context.Background(), usecases.SkipInput{
		GuildID:               ic.guildID,
		NotificationChannelID: ic.channelID,
	})
	if err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	// "Now Playing" is sent by the notification handler.
	if output.NextItem == nil {
		return respondSuccess(r, verb+" "+itemLink(output.SkippedItem)+". Reached the end of the queue.")
	}
	return respondSuccess(r, verb+" "+itemLink(output.SkippedItem)+".")
}

// HandleShuffle handles the /shuffle command.
func (h *Handlers) HandleShuffle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	if err := h.queue.Shuffle(usecases.QueueGuildInput{
		GuildID:               ic.guildID,
		NotificationChannelID: ic.channelID,
	}); err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, "Shuffled the queue.")
}

// HandleUnshuffle handles the /unshuffle command.
func (h *Handlers) HandleUnshuffle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	if err := h.queue.Unshuffle(usecases.QueueGuildInput{
		GuildID:               ic.guildID,
		NotificationChannelID: ic.channelID,
	}); err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, "Restored the original queue order.")
}

// HandleQueue handles the /queue command.
func (h *Handlers) HandleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "list":
		return h.handleQueueList(ic, r, subCmd.Options)
	case "remove":
		return h.handleQueueRemove(ic, r, subCmd.Options)
	case "move":
		return h.handleQueueMove(ic, r, subCmd.Options)
	case "jump":
		return h.handleQueueJump(ic, r, subCmd.Options)
	case "clear":
		return h.handleQueueClear(ic, r)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *Handlers) handleQueueList(
	ic interactionContext,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	page := 1
	for _, opt := range options {
		if opt.Name == "page" {
			page = int(opt.IntValue())
		}
	}

	output, err := h.queue.List(usecases.QueueListInput{
		GuildID:               ic.guildID,
		Page:                  page,
		NotificationChannelID: ic.channelID,
	})
	if err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{queueEmbed(output)},
		},
	})
}

func queueEmbed(output *usecases.QueueListOutput) *discordgo.MessageEmbed {
	// Build title with loop and shuffle indicators
	title := "Queue"
	switch output.LoopMode {
	case "track":
		title += " \U0001F502" // 🔂
	case "queue":
		title += " \U0001F501" // 🔁
	}
	if output.IsShuffling {
		title += " \U0001F500" // 🔀
	}

	embed := &discordgo.MessageEmbed{
		Title: title,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d", output.CurrentPage, output.TotalPages),
		},
	}

	if output.TotalItems == 0 {
		embed.Description = "Queue is empty."
		return embed
	}

	var sb strings.Builder
	section := ""
	for _, entry := range output.Entries {
		next := "### Up Next\n"
		switch {
		case entry.IsCurrent:
			next = "### Now Playing\n"
		case output.CurrentPosition >= 0 && entry.Position < output.CurrentPosition:
			next = "### Played\n"
		}
		if next != section {
			sb.WriteString(next)
			section = next
		}
		// Positions are shown 1-indexed.
		writeItemLine(&sb, entry.Position+1, entry.Item)
	}

	embed.Description = sb.String()
	return embed
}

func (h *Handlers) handleQueueRemove(
	ic interactionContext,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ctx := context.Background()
	position := positionValue(options, "position")

	input := usecases.QueueRemoveInput{
		GuildID:               ic.guildID,
		Position:              position,
		NotificationChannelID: ic.channelID,
	}
	output, err := h.queue.Remove(input)
	if errors.Is(err, usecases.ErrIsCurrentTrack) {
		// Skip away from the item first; the skip keeps its position.
		if _, skipErr := h.playback.Skip(ctx, usecases.SkipInput{
			GuildID:               ic.guildID,
			NotificationChannelID: ic.channelID,
		}); skipErr != nil {
			return respondError(r, usecases.UserMessage(skipErr))
		}
		output, err = h.queue.Remove(input)
	}
	if err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, "Removed "+itemLink(output.RemovedItem)+".")
}

func (h *Handlers) handleQueueMove(
	ic interactionContext,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	from := positionValue(options, "from")
	to := positionValue(options, "to")

	if err := h.queue.Move(usecases.QueueMoveInput{
		GuildID:               ic.guildID,
		From:                  from,
		To:                    to,
		NotificationChannelID: ic.channelID,
	}); err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Moved the track at position %d to position %d.", from+1, to+1))
}

func (h *Handlers) handleQueueJump(
	ic interactionContext,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	position := positionValue(options, "position")

	item, err := h.playback.SkipTo(context.Background(), usecases.SkipToInput{
		GuildID:               ic.guildID,
		Position:              position,
		NotificationChannelID: ic.channelID,
	})
	if err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Jumped to position %d: %s.", position+1, itemLink(item)))
}

func (h *Handlers) handleQueueClear(ic interactionContext, r bot.Responder) error {
	output, err := h.queue.Clear(context.Background(), usecases.QueueGuildInput{
		GuildID:               ic.guildID,
		NotificationChannelID: ic.channelID,
	})
	if err != nil {
		return respondError(r, usecases.UserMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Cleared **%d tracks** from the queue.", output.ClearedCount))
}

// HandleLoop handles the /loop command.
func (h *Handlers) HandleLoop(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	ic, problem := parseInteraction(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var modeStr string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "mode" {
			modeStr = opt.StringValue()
		}
	}

	var newMode string
	if modeStr != "" {
		if err := h.playback.SetLoopMode(ctx, usecases.SetLoopModeInput{
			GuildID:               ic.guildID,
			Mode:                  modeStr,
			NotificationChannelID: ic.channelID,
		}); err != nil {
			return respondError(r, usecases.UserMessage(err))
		}
		newMode = modeStr
	} else {
		output, err := h.playback.CycleLoopMode(ctx, usecases.CycleLoopModeInput{
			GuildID:               ic.guildID,
			NotificationChannelID: ic.channelID,
		})
		if err != nil {
			return respondError(r, usecases.UserMessage(err))
		}
		newMode = output.NewMode
	}

	var description string
	switch newMode {
	case "track":
		description = "Now looping the current track."
	case "queue":
		description = "Now looping the queue."
	default:
		description = "Loop disabled."
	}

	return respondSuccess(r, description)
}

// Response helpers.

// positionValue reads a 1-indexed position option as a 0-indexed position.
func positionValue(options []*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	for _, opt := range options {
		if opt.Name == name {
			return int(opt.IntValue()) - 1
		}
	}
	return -1
}

func respondSuccess(r bot.Responder, description string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: description,
					Color:       colorSuccess,
				},
			},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
		},
	})
}

func itemURL(item *domain.QueueItem) string {
	if item.SourceURL != "" {
		return item.SourceURL
	}
	if item.Handle != nil {
		return item.Handle.URI
	}
	return ""
}

func itemLink(item *domain.QueueItem) string {
	if item == nil {
		return "the track"
	}
	title, artist := item.Details()
	if url := itemURL(item); url != "" {
		return fmt.Sprintf("[%s](%s) by %s", title, url, artist)
	}
	return fmt.Sprintf("**%s** by %s", title, artist)
}

// writeItemLine writes a single queue line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeItemLine(sb *strings.Builder, displayIndex int, item *domain.QueueItem) {
	title, artist := item.Details()
	if url := itemURL(item); url != "" {
		fmt.Fprintf(sb, "%d\\. [%s](%s) - %s\n", displayIndex, title, url, artist)
	} else {
		fmt.Fprintf(sb, "%d\\. **%s** - %s\n", displayIndex, title, artist)
	}
}
