package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

var (
	// ErrNoNode is returned when no Lavalink node is available.
	ErrNoNode = errors.New("no available Lavalink node")
	// ErrNoSession is returned for voice operations on a search-only adapter.
	ErrNoSession = errors.New("no Discord session")
)

// voiceHandshake collects the VoiceStateUpdate and VoiceServerUpdate of one guild.
// Lavalink rejects a partial voice state, so both halves are forwarded together once
// both have arrived, in whichever order Discord sent them.
type voiceHandshake struct {
	mu sync.Mutex

	hasState  bool
	channelID *snowflake.ID
	sessionID string

	hasServer bool
	token     string
	endpoint  string

	// ready is closed once both halves arrived, for a JoinChannel waiting on it.
	ready chan struct{}
}

func newVoiceHandshake() *voiceHandshake {
	return &voiceHandshake{ready: make(chan struct{})}
}

func (h *voiceHandshake) setState(channelID *snowflake.ID, sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hasState = true
	h.channelID = channelID
	h.sessionID = sessionID
	return h.completeLocked()
}

func (h *voiceHandshake) setServer(token, endpoint string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hasServer = true
	h.token = token
	h.endpoint = endpoint
	return h.completeLocked()
}

func (h *voiceHandshake) completeLocked() bool {
	if !h.hasState || !h.hasServer {
		return false
	}
	select {
	case <-h.ready:
	default:
		close(h.ready)
	}
	return true
}

// take returns the collected data and resets the handshake for the next reconnect.
func (h *voiceHandshake) take() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channelID, sessionID, token, endpoint = h.channelID, h.sessionID, h.token, h.endpoint
	h.hasState, h.hasServer = false, false
	h.channelID, h.sessionID, h.token, h.endpoint = nil, "", "", ""
	return
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	NodeName string
	Address  string
	Password string
	Secure   bool
	// SearchTimeout bounds each load or decode request. Zero means DefaultSearchTimeout.
	SearchTimeout time.Duration
}

// DefaultSearchTimeout bounds Lavalink load and decode requests.
const DefaultSearchTimeout = 10 * time.Second

// LavalinkAdapter wraps DisGoLink to implement the player, voice and audio search ports.
type LavalinkAdapter struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID

	handshakeMu sync.Mutex
	handshakes  map[snowflake.ID]*voiceHandshake

	searchTimeout time.Duration

	publisher ports.EventPublisher
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.AudioPlayer         = (*LavalinkAdapter)(nil)
	_ ports.VoiceConnection     = (*LavalinkAdapter)(nil)
	_ ports.AudioSearchProvider = (*LavalinkAdapter)(nil)
)

// NewLavalinkAdapter creates a new LavalinkAdapter connected to one node.
// session may be nil when the adapter is only used for searching.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	botID snowflake.ID,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	searchTimeout := config.SearchTimeout
	if searchTimeout <= 0 {
		searchTimeout = DefaultSearchTimeout
	}

	adapter := &LavalinkAdapter{
		session:       session,
		botID:         botID,
		handshakes:    make(map[snowflake.ID]*voiceHandshake),
		searchTimeout: searchTimeout,
	}

	adapter.link = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)

	name := config.NodeName
	if name == "" {
		name = "main"
	}
	node, err := adapter.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     name,
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// SetEventPublisher sets where track end events are published.
func (c *LavalinkAdapter) SetEventPublisher(publisher ports.EventPublisher) {
	c.publisher = publisher
}

// Close disconnects from every Lavalink node.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// JoinChannel connects to a voice channel.
// It waits for both VoiceStateUpdate and VoiceServerUpdate events before returning.
func (c *LavalinkAdapter) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	if c.session == nil {
		return ErrNoSession
	}
	handshake := c.resetHandshake(guildID)

	if err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true); err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	timer := time.NewTimer(voiceConnectionTimeout)
	defer timer.Stop()

	select {
	case <-handshake.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-timer.C:
		return fmt.Errorf("timeout waiting for voice connection")
	}
}

// LeaveChannel destroys the guild's player and disconnects from the voice channel.
func (c *LavalinkAdapter) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	if player := c.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	if c.session == nil {
		return ErrNoSession
	}
	if err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Play starts streaming the handle.
func (c *LavalinkAdapter) Play(ctx context.Context, guildID snowflake.ID, handle domain.PlayableHandle) error {
	// WithEncodedTrack avoids sending userData:null.
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithEncodedTrack(handle.Encoded)); err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}
	return nil
}

// Stop stops the current playback.
func (c *LavalinkAdapter) Stop(ctx context.Context, guildID snowflake.ID) error {
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// Pause pauses the current playback.
func (c *LavalinkAdapter) Pause(ctx context.Context, guildID snowflake.ID) error {
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

// Resume resumes the paused playback.
func (c *LavalinkAdapter) Resume(ctx context.Context, guildID snowflake.ID) error {
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	return nil
}

// Search loads query from source on the best node.
func (c *LavalinkAdapter) Search(
	ctx context.Context,
	query string,
	source domain.SearchSource,
) (*ports.SearchResult, error) {
	node := c.link.BestNode()
	if node == nil {
		return nil, ErrNoNode
	}

	ctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()

	identifier := source.Apply(query)
	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", identifier, err)
	}

	return convertLoadResult(result)
}

// DecodeHandle decodes a bare Lavalink track encoding.
func (c *LavalinkAdapter) DecodeHandle(ctx context.Context, encoded string) (domain.PlayableHandle, error) {
	node := c.link.BestNode()
	if node == nil {
		return domain.PlayableHandle{}, ErrNoNode
	}

	ctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()

	track, err := node.DecodeTrack(ctx, encoded)
	if err != nil {
		return domain.PlayableHandle{}, fmt.Errorf("failed to decode track: %w", err)
	}
	return convertTrack(*track).Handle, nil
}

func convertLoadResult(result *lavalink.LoadResult) (*ports.SearchResult, error) {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return &ports.SearchResult{
			Type:   ports.LoadTypeTrack,
			Tracks: []domain.ProviderSearchResult{convertTrack(data)},
		}, nil
	case lavalink.Playlist:
		return &ports.SearchResult{
			Type:         ports.LoadTypePlaylist,
			PlaylistName: data.Info.Name,
			Tracks:       convertTracks(data.Tracks),
		}, nil
	case lavalink.Search:
		return &ports.SearchResult{
			Type:   ports.LoadTypeSearch,
			Tracks: convertTracks(data),
		}, nil
	case lavalink.Exception:
		return nil, fmt.Errorf("lavalink failed to load tracks (%s): %s", data.Severity, data.Message)
	default:
		return &ports.SearchResult{Type: ports.LoadTypeEmpty}, nil
	}
}

func convertTracks(tracks []lavalink.Track) []domain.ProviderSearchResult {
	out := make([]domain.ProviderSearchResult, len(tracks))
	for i, track := range tracks {
		out[i] = convertTrack(track)
	}
	return out
}

func convertTrack(track lavalink.Track) domain.ProviderSearchResult {
	info := track.Info
	duration := time.Duration(info.Length) * time.Millisecond
	uri := stringValue(info.URI)

	return domain.ProviderSearchResult{
		Title:      info.Title,
		Author:     info.Author,
		Duration:   duration,
		ArtworkURL: stringValue(info.ArtworkURL),
		URI:        uri,
		ISRC:       stringValue(info.ISRC),
		IsStream:   info.IsStream,
		Handle: domain.PlayableHandle{
			Encoded:    track.Encoded,
			Identifier: info.Identifier,
			URI:        uri,
			SourceName: info.SourceName,
			Title:      info.Title,
			Author:     info.Author,
			Duration:   duration,
		},
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	handshake := c.handshake(guildID)
	if handshake.setServer(event.Token, event.Endpoint) {
		c.forwardVoiceEvents(guildID, handshake)
	}
}

// OnVoiceStateUpdate handles Discord voice state updates of the bot itself and
// reports the channel the bot is now in, or nil when it was disconnected.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) (guildID snowflake.ID, channelID *snowflake.ID, ok bool) {
	if event.UserID != c.botID.String() {
		return 0, nil, false
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return 0, nil, false
	}

	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return 0, nil, false
		}
		channelID = &id
	}

	// A disconnect needs no server update.
	if channelID == nil {
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.dropHandshake(guildID)
		return guildID, nil, true
	}

	handshake := c.handshake(guildID)
	if handshake.setState(channelID, event.SessionID) {
		c.forwardVoiceEvents(guildID, handshake)
	}
	return guildID, channelID, true
}

func (c *LavalinkAdapter) handshake(guildID snowflake.ID) *voiceHandshake {
	c.handshakeMu.Lock()
	defer c.handshakeMu.Unlock()

	h, ok := c.handshakes[guildID]
	if !ok {
		h = newVoiceHandshake()
		c.handshakes[guildID] = h
	}
	return h
}

// resetHandshake starts a fresh handshake so a join waits for new events only.
func (c *LavalinkAdapter) resetHandshake(guildID snowflake.ID) *voiceHandshake {
	c.handshakeMu.Lock()
	defer c.handshakeMu.Unlock()

	h := newVoiceHandshake()
	c.handshakes[guildID] = h
	return h
}

func (c *LavalinkAdapter) dropHandshake(guildID snowflake.ID) {
	c.handshakeMu.Lock()
	defer c.handshakeMu.Unlock()
	delete(c.handshakes, guildID)
}

func (c *LavalinkAdapter) forwardVoiceEvents(guildID snowflake.ID, handshake *voiceHandshake) {
	channelID, sessionID, token, endpoint := handshake.take()

	slog.Debug("forwarding voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"has_session_id", sessionID != "",
	)

	c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	if c.publisher == nil {
		return
	}
	c.publisher.PublishTrackEnded(domain.TrackEndedEvent{
		GuildID: player.GuildID(),
		Reason:  convertEndReason(event.Reason),
	})
}

func (c *LavalinkAdapter) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	slog.Warn("track exception",
		"guild", player.GuildID(),
		"track", event.Track.Info.Title,
		"error", event.Exception.Message,
	)
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return domain.TrackEndCleanup
	default:
		return domain.TrackEndStopped
	}
}
