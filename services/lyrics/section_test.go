package lyrics

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDisplayLabel(t *testing.T) {
	tests := []struct {
		name     string
		section  Section
		expected string
	}{
		{"Verse with tags", Section{Kind: KindVerse, VerseNumber: 2, Modifiers: Modifiers{Prefix: []string{"sad", "Fast"}}}, "Sad Fast Verse 2"},
		{"Verse without number", Section{Kind: KindVerse}, "Verse 1"},
		{"Chorus", Section{Kind: KindChorus, Content: "ignored"}, "Chorus"},
		{"Marker with suffix", Section{Kind: KindStructureModifier, Content: "break", Modifiers: Modifiers{Prefix: []string{"long"}, Suffix: []string{"drums"}}}, "Long Break Drums"},
		{"Custom kind", Section{Kind: Kind("Refrain")}, "Refrain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayLabel(tt.section); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestResolveKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		err      error
	}{
		{"chorus", KindChorus, nil},
		{" PreChorus ", KindPreChorus, nil},
		{"Outro", KindStructureModifier, nil},
		{"StructureModifier", KindStructureModifier, nil},
		{"Refrain", Kind("Refrain"), nil},
		{"", "", ErrInvalidKind},
		{"two words", "", ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ResolveKind(tt.input)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Expected error %v, got %v", tt.err, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSectionValidate(t *testing.T) {
	tests := []struct {
		name    string
		section Section
		err     error
	}{
		{"Valid verse", Section{Kind: KindVerse, VerseNumber: 1}, nil},
		{"Verse missing number", Section{Kind: KindVerse}, ErrInvalidVerseNumber},
		{"Chorus with number", Section{Kind: KindChorus, VerseNumber: 2}, ErrNotVerse},
		{"Suffix on chorus", Section{Kind: KindChorus, Modifiers: Modifiers{Suffix: []string{"x"}}}, ErrInvalidPosition},
		{"Too many tags", Section{Kind: KindHook, Modifiers: Modifiers{Prefix: []string{"a", "b", "c"}}}, ErrModifierLimitExceeded},
		{"Marker with suffix", Section{Kind: KindStructureModifier, Content: "Outro", Modifiers: Modifiers{Suffix: []string{"x"}}}, nil},
		{"Body starts a new block", Section{Kind: KindChorus, Content: "la\n\n[spoken] hey"}, ErrAmbiguousContent},
		{"Bracket after single newline", Section{Kind: KindChorus, Content: "la\n[spoken] hey"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.section.Validate(); !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestSectionJSON(t *testing.T) {
	seq := Parse("[Long Break]\n\n[Sad Verse 3]|||words")
	seq, err := AddModifier(seq, 0, "Drums", PositionSuffix)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, err := json.Marshal(seq)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"modifiers":{"prefix":["Long"],"suffix":["Drums"]}`) {
		t.Errorf("Expected object modifiers for the marker, got %s", body)
	}
	if !strings.Contains(body, `"modifiers":["Sad"]`) {
		t.Errorf("Expected list modifiers for the verse, got %s", body)
	}
	if !strings.Contains(body, `"label":"Sad Verse 3"`) {
		t.Errorf("Expected display label in JSON, got %s", body)
	}

	var decoded Sequence
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !decoded.Equal(seq) {
		t.Errorf("Expected %v, got %v", seq.Labels(), decoded.Labels())
	}
	if decoded[0].ID != seq[0].ID {
		t.Error("Expected IDs to survive JSON")
	}
}

func TestSectionJSON_NullModifiers(t *testing.T) {
	var s Section
	if err := json.Unmarshal([]byte(`{"id":"a","kind":"Chorus","content":"x","modifiers":null}`), &s); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Modifiers.Prefix == nil {
		t.Error("Expected empty, non-nil prefix list")
	}
}
