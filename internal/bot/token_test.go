package bot

import (
	"errors"
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func TestUserIDFromToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    snowflake.ID
		wantErr bool
	}{
		{name: "valid", token: "MTIzNDU2Nzg5MDEyMzQ1Njc4.GabcDE.signature", want: 123456789012345678},
		{name: "bot prefix", token: "Bot MTIzNDU2Nzg5MDEyMzQ1Njc4.GabcDE.signature", want: 123456789012345678},
		{name: "padded segment", token: "OTg3NjU0MzIxMDk4NzY=.GabcDE.signature", want: 98765432109876},
		{name: "no segments", token: "not-a-token", wantErr: true},
		{name: "empty", token: "", wantErr: true},
		{name: "not base64", token: "!!!.a.b", wantErr: true},
		{name: "not a snowflake", token: "aGVsbG8.a.b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UserIDFromToken(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedToken) {
					t.Errorf("expected ErrMalformedToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
