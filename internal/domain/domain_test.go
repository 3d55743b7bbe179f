package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Language
		wantErr error
	}{
		{name: "empty defaults to python", in: "", want: LanguagePython},
		{name: "python", in: "python", want: LanguagePython},
		{name: "case and space", in: "  JavaScript ", want: LanguageJavaScript},
		{name: "typescript", in: "typescript", want: LanguageTypeScript},
		{name: "unknown", in: "cobol", wantErr: ErrUnsupportedLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeDisplayName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Alice", want: "Alice"},
		{name: "trimmed", in: "  Bob  ", want: "Bob"},
		{name: "control chars stripped", in: "Ev\x00e\n", want: "Eve"},
		{name: "empty becomes anonymous", in: "", want: AnonymousName},
		{name: "only spaces", in: "   ", want: AnonymousName},
		{name: "truncated", in: strings.Repeat("x", 50), want: strings.Repeat("x", MaxDisplayNameLen)},
		{name: "truncated by runes", in: strings.Repeat("é", 40), want: strings.Repeat("é", MaxDisplayNameLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeDisplayName(tt.in))
		})
	}
}
