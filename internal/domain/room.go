package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type RoomID string

// Language is the editor language a room is created with.
// It never changes for the life of the room.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"

	DefaultLanguage = LanguagePython
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrStaleOperation      = errors.New("connection is not a member of the room")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrCapacity            = errors.New("room capacity reached")
	ErrIDExhausted         = errors.New("could not allocate a unique room id")
)

var languages = map[Language]struct{}{
	LanguagePython:     {},
	LanguageJavaScript: {},
	LanguageTypeScript: {},
}

// ParseLanguage maps user input onto the closed language set.
// An empty value selects DefaultLanguage.
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLanguage, nil
	}
	l := Language(s)
	if _, ok := languages[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
	return l, nil
}

// Room is the canonical state of one collaborative document.
// Only the room service mutates Document, and only under its lock.
type Room struct {
	ID        RoomID
	Language  Language
	Document  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewRoom(id RoomID, lang Language, now time.Time) *Room {
	return &Room{
		ID:        id,
		Language:  lang,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
