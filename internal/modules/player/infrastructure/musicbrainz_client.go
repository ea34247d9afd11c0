package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// Ensure MusicBrainzClient implements ports.RecordingDatabase.
var _ ports.RecordingDatabase = (*MusicBrainzClient)(nil)

// Defaults for the public MusicBrainz web service.
const (
	DefaultMusicBrainzBaseURL = "https://musicbrainz.org/ws/2"
	DefaultMusicBrainzTimeout = 5 * time.Second
	defaultRecordingLimit     = 10
)

// MusicBrainzConfig holds the MusicBrainz client settings.
type MusicBrainzConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// MusicBrainzClient queries the MusicBrainz web service for recordings.
type MusicBrainzClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewMusicBrainzClient creates a new MusicBrainzClient.
func NewMusicBrainzClient(config MusicBrainzConfig) *MusicBrainzClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultMusicBrainzBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultMusicBrainzTimeout
	}
	return &MusicBrainzClient{
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		userAgent:  config.UserAgent,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type mbRecordingList struct {
	Recordings []mbRecording `json:"recordings"`
}

type mbRecording struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Length       int64            `json:"length"`
	Score        int              `json:"score"`
	ISRCs        []string         `json:"isrcs"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
}

type mbArtistCredit struct {
	Name string `json:"name"`
}

func (r mbRecording) toCandidate() domain.RecordingCandidate {
	candidate := domain.RecordingCandidate{
		ID:     r.ID,
		Title:  r.Title,
		Length: time.Duration(r.Length) * time.Millisecond,
		ISRCs:  r.ISRCs,
		Score:  r.Score,
	}
	if len(r.ArtistCredit) > 0 {
		candidate.ArtistCredit = r.ArtistCredit[0].Name
	}
	return candidate
}

// SearchRecordings runs a structured recording search by title, artist and,
// when known, release.
func (c *MusicBrainzClient) SearchRecordings(
	ctx context.Context,
	query ports.RecordingQuery,
) ([]domain.RecordingCandidate, error) {
	terms := []string{
		"recording:" + query.Title,
		"artist:" + query.Artist,
	}
	if query.Album != "" {
		terms = append(terms, "release:"+query.Album)
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultRecordingLimit
	}

	params := url.Values{
		"query": {strings.Join(terms, " && ")},
		"limit": {strconv.Itoa(limit)},
		"inc":   {"isrcs"},
		"fmt":   {"json"},
	}

	var list mbRecordingList
	if err := c.get(ctx, "/recording", params, &list); err != nil {
		return nil, fmt.Errorf("failed to search recordings: %w", err)
	}
	return lo.Map(list.Recordings, func(r mbRecording, _ int) domain.RecordingCandidate {
		return r.toCandidate()
	}), nil
}

// LookupISRC returns the recordings registered under isrc.
func (c *MusicBrainzClient) LookupISRC(ctx context.Context, isrc string) ([]domain.RecordingCandidate, error) {
	isrc = domain.NormalizeISRC(isrc)

	var list mbRecordingList
	if err := c.get(ctx, "/isrc/"+url.PathEscape(isrc), url.Values{"fmt": {"json"}}, &list); err != nil {
		return nil, fmt.Errorf("failed to look up ISRC %s: %w", isrc, err)
	}
	return lo.Map(list.Recordings, func(r mbRecording, _ int) domain.RecordingCandidate {
		candidate := r.toCandidate()
		if len(candidate.ISRCs) == 0 {
			candidate.ISRCs = []string{isrc}
		}
		return candidate
	}), nil
}

func (c *MusicBrainzClient) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ports.ErrTimeout, err)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ports.ErrRecordingNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ports.ErrTimeout, err)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
