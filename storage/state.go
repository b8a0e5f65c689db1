package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Theme is the persisted UI theme flag.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

var ErrInvalidTheme = errors.New(`theme must be "dark" or "light"`)

// ParseTheme validates a theme value.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeDark:
		return ThemeDark, nil
	case ThemeLight:
		return ThemeLight, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
}

// Theme returns the stored theme, defaulting to dark.
func (s *Store) Theme() Theme {
	var t Theme
	if found, err := s.GetJSON(KeyTheme, &t); err != nil || !found {
		return ThemeDark
	}
	if parsed, err := ParseTheme(string(t)); err == nil {
		return parsed
	}
	return ThemeDark
}

// SetTheme stores the theme flag.
func (s *Store) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return s.PutJSON(KeyTheme, t)
}

// CategoryColors returns the stored category → color mapping.
func (s *Store) CategoryColors() (map[string]string, error) {
	colors := map[string]string{}
	if _, err := s.GetJSON(KeyCategoryColors, &colors); err != nil {
		return nil, err
	}
	return colors, nil
}

// SetCategoryColors replaces the category → color mapping.
func (s *Store) SetCategoryColors(colors map[string]string) error {
	if colors == nil {
		colors = map[string]string{}
	}
	return s.PutJSON(KeyCategoryColors, colors)
}

// MoodBoards is stored verbatim; the editor never looks inside a board.
type MoodBoards struct {
	Boards json.RawMessage `json:"boards"`
	Active string          `json:"active"`
}

// MoodBoards returns the stored boards and active board id.
func (s *Store) MoodBoards() (MoodBoards, error) {
	mb := MoodBoards{Boards: json.RawMessage("[]")}
	if raw, ok := s.Get(KeyMoodBoards); ok {
		if !json.Valid(raw) {
			return mb, fmt.Errorf("decode %s: invalid JSON", KeyMoodBoards)
		}
		mb.Boards = raw
	}
	if _, err := s.GetJSON(KeyActiveMoodBoard, &mb.Active); err != nil {
		return mb, err
	}
	return mb, nil
}

// SetMoodBoards stores the boards blob and the active id together.
func (s *Store) SetMoodBoards(mb MoodBoards) error {
	boards := mb.Boards
	if len(boards) == 0 {
		boards = json.RawMessage("[]")
	}
	if !json.Valid(boards) {
		return fmt.Errorf("mood boards: invalid JSON")
	}
	active, err := json.Marshal(mb.Active)
	if err != nil {
		return err
	}
	return s.PutAll(map[string][]byte{
		KeyMoodBoards:      boards,
		KeyActiveMoodBoard: active,
	})
}
