package lyrics

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Kind is the type of a lyric section. Known kinds use the constants below;
// any other single-token name is a custom lyric kind.
type Kind string

const (
	KindVerse     Kind = "Verse"
	KindChorus    Kind = "Chorus"
	KindPreChorus Kind = "PreChorus"
	KindBridge    Kind = "Bridge"
	KindHook      Kind = "Hook"
	KindLine      Kind = "Line"
	KindDialog    Kind = "Dialog"

	// KindStructureModifier marks non-lyrical sections (Intro, Outro, Break).
	// The marker name lives in Section.Content.
	KindStructureModifier Kind = "StructureModifier"
)

// MaxModifiers is the cap on tags per section, prefix and suffix combined.
const MaxModifiers = 2

// MaxVerseNumber is the highest verse number the editor offers.
const MaxVerseNumber = 7

var knownKinds = []Kind{KindVerse, KindChorus, KindPreChorus, KindBridge, KindHook, KindLine, KindDialog}

// markerNames are the dropdown options that resolve to KindStructureModifier.
var markerNames = []string{"Intro", "Outro", "Break", "Interlude", "Instrumental", "Solo", "Fade"}

// KnownKinds returns the closed set of lyric section kinds.
func KnownKinds() []Kind {
	out := make([]Kind, len(knownKinds))
	copy(out, knownKinds)
	return out
}

// MarkerNames returns the structure-marker names offered by the editor.
func MarkerNames() []string {
	out := make([]string, len(markerNames))
	copy(out, markerNames)
	return out
}

// knownKind matches name case-insensitively against the known lyric kinds.
func knownKind(name string) (Kind, bool) {
	for _, k := range knownKinds {
		if strings.EqualFold(string(k), name) {
			return k, true
		}
	}
	return "", false
}

func isMarkerName(name string) bool {
	if strings.EqualFold(name, string(KindStructureModifier)) {
		return true
	}
	for _, m := range markerNames {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}

// ResolveKind maps a dropdown option to a section kind.
func ResolveKind(name string) (Kind, error) {
	name = strings.TrimSpace(name)
	if k, ok := knownKind(name); ok {
		return k, nil
	}
	if isMarkerName(name) {
		return KindStructureModifier, nil
	}
	if !validToken(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, name)
	}
	return Kind(name), nil
}

// IsKnown reports whether k is one of the closed set of lyric kinds.
func (k Kind) IsKnown() bool {
	_, ok := knownKind(string(k))
	return ok
}

// IsCustom reports whether k is a user-defined lyric kind.
func (k Kind) IsCustom() bool {
	return k != "" && k != KindStructureModifier && !k.IsKnown()
}

// Modifiers holds a section's tags. Suffix is only used by structure markers;
// for every other kind the tag list is Prefix.
type Modifiers struct {
	Prefix []string `json:"prefix"`
	Suffix []string `json:"suffix"`
}

// Count returns the number of tags, prefix and suffix combined.
func (m Modifiers) Count() int {
	return len(m.Prefix) + len(m.Suffix)
}

// Tags returns all tags in display order.
func (m Modifiers) Tags() []string {
	out := make([]string, 0, m.Count())
	out = append(out, m.Prefix...)
	return append(out, m.Suffix...)
}

func (m Modifiers) clone() Modifiers {
	return Modifiers{Prefix: cloneTags(m.Prefix), Suffix: cloneTags(m.Suffix)}
}

func cloneTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// EmptyModifiersFor returns the schema-correct empty modifier value for kind.
func EmptyModifiersFor(kind Kind) Modifiers {
	if kind == KindStructureModifier {
		return Modifiers{Prefix: []string{}, Suffix: []string{}}
	}
	return Modifiers{Prefix: []string{}}
}

// Section is one structural unit of a song.
type Section struct {
	ID          string
	Kind        Kind
	Content     string
	VerseNumber int
	Modifiers   Modifiers
}

// Validate checks the modifier schema and verse number invariants.
func (s Section) Validate() error {
	if s.Kind == "" {
		return ErrInvalidKind
	}
	if s.Kind != KindStructureModifier && len(s.Modifiers.Suffix) > 0 {
		return fmt.Errorf("%w: suffix tags on %s", ErrInvalidPosition, s.Kind)
	}
	if s.Kind == KindVerse && s.VerseNumber < 1 {
		return ErrInvalidVerseNumber
	}
	if s.Kind != KindVerse && s.VerseNumber != 0 {
		return ErrNotVerse
	}
	if s.Modifiers.Count() > MaxModifiers {
		return ErrModifierLimitExceeded
	}
	if splitsBlock(s.Content) {
		return ErrAmbiguousContent
	}
	return nil
}

// Equal compares two sections structurally. IDs are ignored.
func (s Section) Equal(o Section) bool {
	return s.Kind == o.Kind &&
		s.Content == o.Content &&
		s.VerseNumber == o.VerseNumber &&
		tagsEqual(s.Modifiers.Prefix, o.Modifiers.Prefix) &&
		tagsEqual(s.Modifiers.Suffix, o.Modifiers.Suffix)
}

func tagsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DisplayLabel renders the human-readable label, e.g. "Sad Fast Verse 2".
func DisplayLabel(s Section) string {
	parts := make([]string, 0, s.Modifiers.Count()+2)
	for _, tag := range s.Modifiers.Prefix {
		parts = append(parts, Capitalize(tag))
	}
	switch s.Kind {
	case KindVerse:
		n := s.VerseNumber
		if n < 1 {
			n = 1
		}
		parts = append(parts, string(KindVerse), strconv.Itoa(n))
	case KindStructureModifier:
		parts = append(parts, Capitalize(s.Content))
		for _, tag := range s.Modifiers.Suffix {
			parts = append(parts, Capitalize(tag))
		}
	default:
		parts = append(parts, string(s.Kind))
	}
	return strings.Join(parts, " ")
}

// Capitalize upper-cases the first rune and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ValidTag reports whether tag survives a serialize/parse round trip as a
// single modifier token.
func ValidTag(tag string) bool {
	return validToken(tag) && !strings.EqualFold(tag, "verse")
}

func validToken(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if unicode.IsSpace(r) || r == '[' || r == ']' || r == '|' {
			return false
		}
	}
	return true
}

var newID = uuid.NewString

// sectionJSON is the wire shape: modifiers are a list for lyric kinds and
// {prefix, suffix} for structure markers.
type sectionJSON struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Label       string          `json:"label,omitempty"`
	Content     string          `json:"content"`
	VerseNumber int             `json:"verseNumber,omitempty"`
	Modifiers   json.RawMessage `json:"modifiers"`
}

func (s Section) MarshalJSON() ([]byte, error) {
	var mods interface{}
	if s.Kind == KindStructureModifier {
		mods = Modifiers{Prefix: nonNil(s.Modifiers.Prefix), Suffix: nonNil(s.Modifiers.Suffix)}
	} else {
		mods = nonNil(s.Modifiers.Prefix)
	}
	raw, err := json.Marshal(mods)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sectionJSON{
		ID:          s.ID,
		Kind:        s.Kind,
		Label:       DisplayLabel(s),
		Content:     s.Content,
		VerseNumber: s.VerseNumber,
		Modifiers:   raw,
	})
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var aux sectionJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ID = aux.ID
	s.Kind = aux.Kind
	s.Content = aux.Content
	s.VerseNumber = aux.VerseNumber
	s.Modifiers = EmptyModifiersFor(aux.Kind)
	if len(aux.Modifiers) == 0 || string(aux.Modifiers) == "null" {
		return nil
	}
	if aux.Kind == KindStructureModifier {
		var m Modifiers
		if err := json.Unmarshal(aux.Modifiers, &m); err != nil {
			return fmt.Errorf("structure modifier tags: %w", err)
		}
		s.Modifiers.Prefix = nonNil(m.Prefix)
		s.Modifiers.Suffix = nonNil(m.Suffix)
		return nil
	}
	var tags []string
	if err := json.Unmarshal(aux.Modifiers, &tags); err != nil {
		return fmt.Errorf("section tags: %w", err)
	}
	s.Modifiers.Prefix = nonNil(tags)
	return nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// Sequence is an ordered list of sections. Operations treat it as immutable.
type Sequence []Section

// Equal compares two sequences structurally, ignoring IDs.
func (seq Sequence) Equal(other Sequence) bool {
	if len(seq) != len(other) {
		return false
	}
	for i := range seq {
		if !seq[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Labels returns DisplayLabel for every section in order.
func (seq Sequence) Labels() []string {
	out := make([]string, len(seq))
	for i, s := range seq {
		out[i] = DisplayLabel(s)
	}
	return out
}
