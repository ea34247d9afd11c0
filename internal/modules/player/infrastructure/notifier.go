package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
)

// Embed colors.
const (
	colorRed        = 0xE74C3C
	colorYouTube    = 0xFF0000
	colorSoundCloud = 0xFF5500
	colorDeezer     = 0xA238FF
	colorDefault    = 0x1DB954
)

const imperfectMatchNotice = "Matched by title and artist, so this may not be the exact recording."

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)

// Notifier sends notifications to Discord channels.
type Notifier struct {
	session    *discordgo.Session
	httpClient *http.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(channelID snowflake.ID, info *ports.NowPlayingInfo) (snowflake.ID, error) {
	embed := nowPlayingEmbed(info)
	if thumbnailURL := n.bestThumbnail(info); thumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnailURL}
	}

	msg, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	if err != nil {
		return 0, err
	}
	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, err
	}
	return messageID, nil
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

func nowPlayingEmbed(info *ports.NowPlayingInfo) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: "Now Playing"},
		Title:  info.Title,
		URL:    info.URI,
		Color:  sourceColor(info.SourceName),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artist", Value: info.Artist, Inline: true},
		},
	}
	if !info.StartedAt.IsZero() {
		embed.Timestamp = info.StartedAt.UTC().Format(time.RFC3339)
	}
	if info.Album != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Album", Value: info.Album, Inline: true,
		})
	}
	if info.Duration > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Duration", Value: FormatDuration(info.Duration), Inline: true,
		})
	}
	if info.RequesterID != 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Requested by", Value: fmt.Sprintf("<@%s>", info.RequesterID), Inline: true,
		})
	}
	if info.IsImperfectMatch {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: imperfectMatchNotice}
	}
	return embed
}

// FormatDuration renders d as m:ss, or h:mm:ss from one hour up.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func sourceColor(sourceName string) int {
	switch sourceName {
	case "youtube":
		return colorYouTube
	case "soundcloud":
		return colorSoundCloud
	case "deezer":
		return colorDeezer
	default:
		return colorDefault
	}
}

// bestThumbnail prefers the highest quality YouTube thumbnail that exists and
// otherwise uses the artwork reported for the item.
func (n *Notifier) bestThumbnail(info *ports.NowPlayingInfo) string {
	if info.SourceName != "youtube" || info.Identifier == "" {
		return info.ArtworkURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, quality := range []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"} {
		url := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", info.Identifier, quality)
		if n.urlExists(ctx, url) {
			return url
		}
	}
	return info.ArtworkURL
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}
