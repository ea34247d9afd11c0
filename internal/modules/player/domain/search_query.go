package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// SearchSource is the provider prefix used for search queries.
type SearchSource string

const (
	SourceYouTube      SearchSource = "ytsearch"
	SourceYouTubeMusic SearchSource = "ytmsearch"
	SourceSoundCloud   SearchSource = "scsearch"
	SourceDeezer       SearchSource = "dzsearch"
	SourceDeezerISRC   SearchSource = "dzisrc"
	// SourceDirect loads an identifier or URL as-is, without a search prefix.
	SourceDirect SearchSource = ""
)

// Apply formats query for the provider.
func (s SearchSource) Apply(query string) string {
	if s == SourceDirect {
		return query
	}
	return string(s) + ":" + query
}

// QueryKind classifies a user query.
type QueryKind int

const (
	QueryText QueryKind = iota
	QueryCatalog
	QueryVideo
	QueryVideoPlaylist
	QuerySoundCloud
	QueryUnsupported
)

func (k QueryKind) String() string {
	switch k {
	case QueryCatalog:
		return "catalog"
	case QueryVideo:
		return "video"
	case QueryVideoPlaylist:
		return "video playlist"
	case QuerySoundCloud:
		return "soundcloud"
	case QueryUnsupported:
		return "unsupported"
	default:
		return "text"
	}
}

// CatalogEntity is the type of entity a catalog URL points to.
type CatalogEntity string

const (
	CatalogTrackEntity    CatalogEntity = "track"
	CatalogAlbumEntity    CatalogEntity = "album"
	CatalogPlaylistEntity CatalogEntity = "playlist"
	CatalogArtistEntity   CatalogEntity = "artist"
)

// ParsedQuery is the result of classifying a user query.
type ParsedQuery struct {
	Kind   QueryKind
	Raw    string
	Entity CatalogEntity // set for QueryCatalog
	ID     string        // catalog id, video id or playlist id
}

var (
	spotifyPattern         = regexp.MustCompile(`^(https?://open\.)*spotify(\.com)*[/:]+(intl-[a-zA-Z-]+/)?(track|artist|album|playlist)[/:]+[A-Za-z0-9]+`)
	youtubeVideoPattern    = regexp.MustCompile(`^(?:https?://)?(?:youtu\.be/|(?:www\.|m\.|music\.)?youtube\.com/(?:watch|v|embed)(?:\.php)?(?:\?.*v=|/))([a-zA-Z0-9_-]+)`)
	youtubePlaylistPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.|music\.)?youtube\.com/playlist\?list=([a-zA-Z0-9_-]+)`)
	soundCloudPattern      = regexp.MustCompile(`^(https?://)?(www\.|m\.)?(soundcloud\.com|snd\.sc)/(.*)$`)
	domainPattern          = regexp.MustCompile(`^(?i)([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}(/\S*)?$`)
)

// ClassifyQuery decides how a user query should be resolved.
func ClassifyQuery(input string) ParsedQuery {
	input = strings.TrimSpace(input)
	parsed := ParsedQuery{Kind: QueryText, Raw: input}

	if entity, id, ok := parseSpotify(input); ok {
		parsed.Kind = QueryCatalog
		parsed.Entity = entity
		parsed.ID = id
		return parsed
	}
	if !isURL(input) {
		return parsed
	}

	switch {
	case youtubeVideoPattern.MatchString(input):
		parsed.Kind = QueryVideo
		parsed.ID = youtubeVideoID(input)
	case youtubePlaylistPattern.MatchString(input):
		parsed.Kind = QueryVideoPlaylist
		parsed.ID = youtubePlaylistPattern.FindStringSubmatch(input)[1]
	case soundCloudPattern.MatchString(input):
		parsed.Kind = QuerySoundCloud
	default:
		parsed.Kind = QueryUnsupported
	}
	return parsed
}

// parseSpotify extracts the entity type and id from open.spotify.com links and
// spotify: URIs.
func parseSpotify(input string) (CatalogEntity, string, bool) {
	if !spotifyPattern.MatchString(input) {
		return "", "", false
	}

	var segments []string
	switch {
	case strings.HasPrefix(input, "spotify:"):
		segments = strings.Split(input, ":")[1:]
	default:
		u, err := url.Parse(withScheme(input))
		if err != nil {
			return "", "", false
		}
		for _, s := range strings.Split(u.Path, "/") {
			// Localized links carry an intl-xx segment before the entity type.
			if s != "" && !strings.HasPrefix(s, "intl-") {
				segments = append(segments, s)
			}
		}
	}
	if len(segments) < 2 {
		return "", "", false
	}

	entity := CatalogEntity(segments[0])
	switch entity {
	case CatalogTrackEntity, CatalogAlbumEntity, CatalogPlaylistEntity, CatalogArtistEntity:
		return entity, segments[1], true
	}
	return "", "", false
}

func youtubeVideoID(input string) string {
	u, err := url.Parse(withScheme(input))
	if err != nil {
		return youtubeVideoPattern.FindStringSubmatch(input)[1]
	}
	if strings.Contains(u.Hostname(), "youtu.be") {
		return strings.TrimPrefix(u.Path, "/")
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	return youtubeVideoPattern.FindStringSubmatch(input)[1]
}

// isURL reports whether the input looks like a URL or a bare domain.
func isURL(input string) bool {
	if strings.ContainsAny(input, " \t\n") {
		return false
	}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return true
	}
	return domainPattern.MatchString(input)
}

func withScheme(input string) string {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return input
	}
	return "https://" + input
}
