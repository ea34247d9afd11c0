package bot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

// ErrMalformedToken is returned when a bot token has no decodable user ID segment.
var ErrMalformedToken = errors.New("malformed bot token")

// UserIDFromToken returns the bot user ID encoded in the first segment of a
// bot token, without contacting Discord.
func UserIDFromToken(token string) (snowflake.ID, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "Bot ")
	segment, _, ok := strings.Cut(token, ".")
	if !ok || segment == "" {
		return 0, ErrMalformedToken
	}

	segment = strings.TrimRight(segment, "=")
	raw, err := base64.RawStdEncoding.DecodeString(segment)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(segment)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	id, err := snowflake.Parse(string(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return id, nil
}
