package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

var errProvider = errors.New("provider unavailable")

func mockHandle(id string) domain.PlayableHandle {
	return domain.PlayableHandle{
		Encoded:    "encoded-" + id,
		Identifier: id,
		URI:        "https://www.youtube.com/watch?v=" + id,
		SourceName: "youtube",
		Title:      "Track " + id,
		Author:     "Artist",
		Duration:   3 * time.Minute,
	}
}

func mockResult(id, title, author string, duration time.Duration) domain.ProviderSearchResult {
	handle := mockHandle(id)
	handle.Title = title
	handle.Author = author
	handle.Duration = duration
	return domain.ProviderSearchResult{
		Title:    title,
		Author:   author,
		Duration: duration,
		URI:      handle.URI,
		Handle:   handle,
	}
}

// mockItem returns an unresolved item as produced from a catalog track.
func mockItem(id string) *domain.QueueItem {
	return &domain.QueueItem{
		Requester: snowflake.ID(123),
		Title:     "Track " + id,
		Artist:    "Artist",
		Author:    "Artist",
		Duration:  3 * time.Minute,
		ContentID: "content-" + id,
	}
}

// mockResolvedItem returns an item that already carries a handle.
func mockResolvedItem(id string) *domain.QueueItem {
	item := mockItem(id)
	handle := mockHandle(id)
	item.Handle = &handle
	return item
}

type mockRepository struct {
	states  map[snowflake.ID]*domain.PlayerState
	deleted []snowflake.ID
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		states: make(map[snowflake.ID]*domain.PlayerState),
	}
}

func (m *mockRepository) Get(guildID snowflake.ID) *domain.PlayerState {
	return m.states[guildID]
}

func (m *mockRepository) Save(state *domain.PlayerState) {
	m.states[state.GuildID()] = state
}

func (m *mockRepository) Delete(guildID snowflake.ID) {
	m.deleted = append(m.deleted, guildID)
	delete(m.states, guildID)
}

// createConnectedState creates a PlayerState with an empty queue and saves it.
func (m *mockRepository) createConnectedState(
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
) *domain.PlayerState {
	queue := domain.NewQueue(context.Background(), guildID, nil)
	state := domain.NewPlayerState(guildID, voiceChannelID, notificationChannelID, queue)
	m.Save(state)
	return state
}

type mockAudioPlayer struct {
	played    []domain.PlayableHandle
	playErrs  map[string]error // keyed by encoded handle
	playErr   error
	stopped   int
	stopErr   error
	pauseErr  error
	resumeErr error
}

func (m *mockAudioPlayer) Play(_ context.Context, _ snowflake.ID, handle domain.PlayableHandle) error {
	if err := m.playErrs[handle.Encoded]; err != nil {
		return err
	}
	if m.playErr != nil {
		return m.playErr
	}
	m.played = append(m.played, handle)
	return nil
}

func (m *mockAudioPlayer) Stop(_ context.Context, _ snowflake.ID) error {
	m.stopped++
	return m.stopErr
}

func (m *mockAudioPlayer) Pause(_ context.Context, _ snowflake.ID) error {
	return m.pauseErr
}

func (m *mockAudioPlayer) Resume(_ context.Context, _ snowflake.ID) error {
	return m.resumeErr
}

type mockVoiceConnection struct {
	joined   []snowflake.ID
	joinErr  error
	left     int
	leaveErr error
}

func (m *mockVoiceConnection) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joined = append(m.joined, channelID)
	return nil
}

func (m *mockVoiceConnection) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	m.left++
	return m.leaveErr
}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceStateProvider) UserVoiceChannel(_, userID snowflake.ID) (*snowflake.ID, error) {
	if m.err != nil {
		return nil, m.err
	}
	channelID, ok := m.channels[userID]
	if !ok {
		return nil, nil
	}
	return &channelID, nil
}

type mockEventPublisher struct {
	trackEnded       []domain.TrackEndedEvent
	playbackStarted  []domain.PlaybackStartedEvent
	playbackFinished []domain.PlaybackFinishedEvent
	trackFailed      []domain.TrackFailedEvent
}

func (m *mockEventPublisher) PublishTrackEnded(event domain.TrackEndedEvent) {
	m.trackEnded = append(m.trackEnded, event)
}

func (m *mockEventPublisher) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	m.playbackStarted = append(m.playbackStarted, event)
}

func (m *mockEventPublisher) PublishPlaybackFinished(event domain.PlaybackFinishedEvent) {
	m.playbackFinished = append(m.playbackFinished, event)
}

func (m *mockEventPublisher) PublishTrackFailed(event domain.TrackFailedEvent) {
	m.trackFailed = append(m.trackFailed, event)
}

// mockAudioSearch answers searches from a table keyed by the prefixed query.
type mockAudioSearch struct {
	results map[string][]domain.ProviderSearchResult
	errs    map[string]error
	decoded map[string]domain.PlayableHandle
	calls   []string
	decodes []string
}

func newMockAudioSearch() *mockAudioSearch {
	return &mockAudioSearch{
		results: make(map[string][]domain.ProviderSearchResult),
		errs:    make(map[string]error),
		decoded: make(map[string]domain.PlayableHandle),
	}
}

func (m *mockAudioSearch) on(source domain.SearchSource, query string, results ...domain.ProviderSearchResult) {
	m.results[source.Apply(query)] = results
}

func (m *mockAudioSearch) Search(
	_ context.Context,
	query string,
	source domain.SearchSource,
) (*ports.SearchResult, error) {
	key := source.Apply(query)
	m.calls = append(m.calls, key)
	if err := m.errs[key]; err != nil {
		return nil, err
	}
	tracks, ok := m.results[key]
	if !ok {
		return &ports.SearchResult{Type: ports.LoadTypeEmpty}, nil
	}
	// Callers may reorder the slice they get back.
	return &ports.SearchResult{
		Type:   ports.LoadTypeSearch,
		Tracks: append([]domain.ProviderSearchResult(nil), tracks...),
	}, nil
}

func (m *mockAudioSearch) DecodeHandle(_ context.Context, encoded string) (domain.PlayableHandle, error) {
	m.decodes = append(m.decodes, encoded)
	handle, ok := m.decoded[encoded]
	if !ok {
		return domain.PlayableHandle{}, errProvider
	}
	return handle, nil
}

type mockCatalog struct {
	searchResults []domain.CatalogTrack
	searchErr     error
	tracks        map[string]domain.CatalogTrack
	lists         map[string]*ports.CatalogList
	err           error
	calls         []string
}

func (m *mockCatalog) SearchTracks(_ context.Context, query string, _ int) ([]domain.CatalogTrack, error) {
	m.calls = append(m.calls, "search:"+query)
	return m.searchResults, m.searchErr
}

func (m *mockCatalog) GetTrack(_ context.Context, id string) (domain.CatalogTrack, error) {
	m.calls = append(m.calls, "track:"+id)
	if m.err != nil {
		return domain.CatalogTrack{}, m.err
	}
	track, ok := m.tracks[id]
	if !ok {
		return domain.CatalogTrack{}, ports.ErrCatalogNotFound
	}
	return track, nil
}

func (m *mockCatalog) GetArtistTopTracks(_ context.Context, id string) (*ports.CatalogList, error) {
	m.calls = append(m.calls, "artist:"+id)
	return m.list(id)
}

func (m *mockCatalog) GetListTracks(
	_ context.Context,
	entity domain.CatalogEntity,
	id string,
) (*ports.CatalogList, error) {
	m.calls = append(m.calls, string(entity)+":"+id)
	return m.list(id)
}

func (m *mockCatalog) list(id string) (*ports.CatalogList, error) {
	if m.err != nil {
		return nil, m.err
	}
	list, ok := m.lists[id]
	if !ok {
		return nil, ports.ErrCatalogNotFound
	}
	return list, nil
}

type mockCache struct {
	mu      sync.Mutex
	handles map[string]string
	mbids   map[string]string
	isrcs   map[string]string
	getErr  error
	setErr  error
}

func newMockCache() *mockCache {
	return &mockCache{
		handles: make(map[string]string),
		mbids:   make(map[string]string),
		isrcs:   make(map[string]string),
	}
}

func handleKey(keyType ports.CacheKeyType, key string) string {
	return string(keyType) + ":" + key
}

func (m *mockCache) GetHandle(_ context.Context, keyType ports.CacheKeyType, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.handles[handleKey(keyType, key)]
	return v, ok, nil
}

func (m *mockCache) SetHandle(_ context.Context, keyType ports.CacheKeyType, key, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.handles[handleKey(keyType, key)] = handle
	return nil
}

func (m *mockCache) DeleteHandle(_ context.Context, keyType ports.CacheKeyType, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handles, handleKey(keyType, key))
	return nil
}

func (m *mockCache) GetMusicBrainzID(_ context.Context, contentID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.mbids[contentID]
	return v, ok, m.getErr
}

func (m *mockCache) SetMusicBrainzID(_ context.Context, contentID, mbid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.mbids[contentID] = mbid
	return nil
}

func (m *mockCache) GetISRC(_ context.Context, contentID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.isrcs[contentID]
	return v, ok, m.getErr
}

func (m *mockCache) SetISRC(_ context.Context, contentID, isrc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.isrcs[contentID] = isrc
	return nil
}

// mockAnnotator assigns a fixed ISRC.
type mockAnnotator struct {
	isrc  string
	err   error
	calls int
}

func (m *mockAnnotator) Annotate(_ context.Context, item *domain.QueueItem) (string, string, error) {
	m.calls++
	if m.err != nil {
		return "", "", m.err
	}
	if item.ISRC == "" {
		item.ISRC = m.isrc
	}
	item.IsAnnotated = true
	return item.MusicBrainzID, item.ISRC, nil
}

type mockRecordingDatabase struct {
	recordings  []domain.RecordingCandidate
	searchErr   error
	byISRC      map[string][]domain.RecordingCandidate
	isrcErr     error
	searches    []ports.RecordingQuery
	isrcLookups []string
}

func (m *mockRecordingDatabase) SearchRecordings(
	_ context.Context,
	query ports.RecordingQuery,
) ([]domain.RecordingCandidate, error) {
	m.searches = append(m.searches, query)
	return m.recordings, m.searchErr
}

func (m *mockRecordingDatabase) LookupISRC(_ context.Context, isrc string) ([]domain.RecordingCandidate, error) {
	m.isrcLookups = append(m.isrcLookups, isrc)
	if m.isrcErr != nil {
		return nil, m.isrcErr
	}
	recordings, ok := m.byISRC[isrc]
	if !ok {
		return nil, ports.ErrRecordingNotFound
	}
	return recordings, nil
}

type mockLimiter struct {
	waits int
	err   error
}

func (m *mockLimiter) Wait(_ context.Context) error {
	m.waits++
	return m.err
}

// mockFinder resolves items by title.
type mockFinder struct {
	handles     map[string]domain.PlayableHandle
	errs        map[string]error
	found       []string
	forced      []string
	invalidated []string
}

func newMockFinder() *mockFinder {
	return &mockFinder{
		handles: make(map[string]domain.PlayableHandle),
		errs:    make(map[string]error),
	}
}

func (m *mockFinder) FindPlayable(
	_ context.Context,
	item *domain.QueueItem,
	opts FindOptions,
) (domain.PlayableHandle, error) {
	m.found = append(m.found, item.Title)
	if opts.ForceLookup {
		m.forced = append(m.forced, item.Title)
	}
	if err := m.errs[item.Title]; err != nil {
		return domain.PlayableHandle{}, err
	}
	handle, ok := m.handles[item.Title]
	if !ok {
		return domain.PlayableHandle{}, ErrNoPlayableMatch
	}
	item.Handle = &handle
	return handle, nil
}

func (m *mockFinder) Invalidate(_ context.Context, item *domain.QueueItem) {
	m.invalidated = append(m.invalidated, item.Title)
}

type mockLoopSettings struct {
	loopOne map[snowflake.ID]bool
	loopAll map[snowflake.ID]bool
}

func newMockLoopSettings() *mockLoopSettings {
	return &mockLoopSettings{
		loopOne: make(map[snowflake.ID]bool),
		loopAll: make(map[snowflake.ID]bool),
	}
}

func (m *mockLoopSettings) LoopOne(_ context.Context, guildID snowflake.ID) (bool, error) {
	return m.loopOne[guildID], nil
}

func (m *mockLoopSettings) SetLoopOne(_ context.Context, guildID snowflake.ID, enabled bool) error {
	m.loopOne[guildID] = enabled
	return nil
}

func (m *mockLoopSettings) LoopAll(_ context.Context, guildID snowflake.ID) (bool, error) {
	return m.loopAll[guildID], nil
}

func (m *mockLoopSettings) SetLoopAll(_ context.Context, guildID snowflake.ID, enabled bool) error {
	m.loopAll[guildID] = enabled
	return nil
}
