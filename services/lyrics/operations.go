package lyrics

import (
	"fmt"
	"strings"
)

// Direction is the swap direction for Move.
type Direction int

const (
	Up Direction = iota
	Down
)

// Position selects the tag list a modifier operation targets.
type Position int

const (
	PositionPrefix Position = iota
	PositionSuffix
)

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, fmt.Errorf("unknown direction %q", s)
}

// ParsePosition accepts "prefix", "suffix" or an empty string (prefix).
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prefix":
		return PositionPrefix, nil
	case "suffix":
		return PositionSuffix, nil
	}
	return PositionPrefix, fmt.Errorf("%w: unknown position %q", ErrInvalidPosition, s)
}

// Every operation below returns a new sequence and leaves its input alone.
// On error the input is returned unchanged.

func (seq Sequence) clone() Sequence {
	out := make(Sequence, len(seq))
	copy(out, seq)
	return out
}

func (seq Sequence) check(index int) error {
	if index < 0 || index >= len(seq) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(seq))
	}
	return nil
}

func markerName(content string) (string, error) {
	name := strings.TrimSpace(content)
	if name == "" {
		return "", ErrBlankMarker
	}
	if _, known := knownKind(name); known || !ValidTag(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMarker, name)
	}
	return name, nil
}

// NewSection builds a freshly identified section of the given kind. Marker
// options such as "Intro" become a structure marker named after the option
// when no name is given.
func NewSection(kind Kind, content string) (Section, error) {
	resolved, err := ResolveKind(string(kind))
	if err != nil {
		return Section{}, err
	}
	if splitsBlock(content) {
		return Section{}, ErrAmbiguousContent
	}
	s := Section{ID: newID(), Kind: resolved, Content: content, Modifiers: EmptyModifiersFor(resolved)}
	switch resolved {
	case KindVerse:
		s.VerseNumber = 1
	case KindStructureModifier:
		option := strings.TrimSpace(string(kind))
		if strings.TrimSpace(content) == "" && !strings.EqualFold(option, string(KindStructureModifier)) {
			content = Capitalize(option)
		}
		name, err := markerName(content)
		if err != nil {
			return Section{}, err
		}
		s.Content = name
	}
	return s, nil
}

// Add inserts a new section at index, clamped to the sequence bounds.
func Add(seq Sequence, kind Kind, content string, at int) (Sequence, error) {
	s, err := NewSection(kind, content)
	if err != nil {
		return seq, err
	}
	if at < 0 {
		at = 0
	}
	if at > len(seq) {
		at = len(seq)
	}
	out := make(Sequence, 0, len(seq)+1)
	out = append(out, seq[:at]...)
	out = append(out, s)
	out = append(out, seq[at:]...)
	return out, nil
}

// Duplicate inserts a copy of the section at index directly after it.
func Duplicate(seq Sequence, index int) (Sequence, error) {
	if err := seq.check(index); err != nil {
		return seq, err
	}
	dup := seq[index]
	dup.ID = newID()
	dup.Modifiers = dup.Modifiers.clone()
	out := make(Sequence, 0, len(seq)+1)
	out = append(out, seq[:index+1]...)
	out = append(out, dup)
	out = append(out, seq[index+1:]...)
	return out, nil
}

// ChangeKind retypes a section and resets its modifiers. Marker options such
// as "outro" become a structure marker named after the option.
func ChangeKind(seq Sequence, index int, kind Kind) (Sequence, error) {
	if err := seq.check(index); err != nil {
		return seq, err
	}
	resolved, err := ResolveKind(string(kind))
	if err != nil {
		return seq, err
	}
	out := seq.clone()
	s := out[index]
	s.Kind = resolved
	s.Modifiers = EmptyModifiersFor(resolved)
	s.VerseNumber = 0
	switch resolved {
	case KindVerse:
		s.VerseNumber = 1
	case KindStructureModifier:
		s.Content = Capitalize(strings.TrimSpace(string(kind)))
	}
	out[index] = s
	return out, nil
}

// ChangeVerseNumber sets the number of a verse section.
func ChangeVerseNumber(seq Sequence, index, number int) (Sequence, error) {
	if err := seq.check(index); err != nil {
		return seq, err
	}
	if seq[index].Kind != KindVerse {
		return seq, ErrNotVerse
	}
	if number < 1 || number > MaxVerseNumber {
		return seq, fmt.Errorf("%w: %d", ErrInvalidVerseNumber, number)
	}
	out := seq.clone()
	out[index].VerseNumber = number
	return out, nil
}

// Remove deletes the section at index.
func Remove(seq Sequence, index int) (Sequence, error) {
	if err := seq.check(index); err != nil {
		return seq, err
	}
	out := make(Sequence, 0, len(seq)-1)
	out = append(out, seq[:index]...)
	return append(out, seq[index+1:]...), nil
}

// Move swaps a section with its neighbour. It is a no-op at the boundary.
func Move(seq Sequence, index int, dir Direction) (Sequence, error) {
	if err := seq.check(index); err != nil {
		return seq, err
	}
	target := index - 1
	if dir == Down {
		target = index + 1
	}
	if target < 0 || target >= len(seq) {
		return seq, nil
	}
	out := seq.clone()
	out[index], out[target] = out[target], out[index]
	return out, nil
}

// Reorder removes the section at from and reinserts it at to.
func Reorder(seq Sequence, from, to int) (Sequence, error) {
	if err := seq.check(from); err != nil {
		return seq, err
	}
	if err := seq.check(to); err != nil {
		return seq, err
	}
	if from == to {
		return seq, nil
	}
	moved := seq[from]
	rest := make(Sequence, 0, len(seq))
	rest = append(rest, seq[:from]...)
	rest = append(rest, seq[from+1:]...)
	out := make(Sequence, 0, len(seq))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	return append(out, rest[to:]...), nil
}

// SetContent replaces the body of a section. For structure markers the
// content is the marker name and must stay a single word. Text with a blank
// line directly followed by '[' is rejected, since Parse would read it as a
// new block.
func SetContent(seq Sequence, index int, text string) (Sequence, error) {
	if err := seq.check(index); err != nil {
		return seq, err
	}
	if splitsBlock(text) {
		return seq, ErrAmbiguousContent
	}
	if seq[index].Kind == KindStructureModifier {
		name, err := markerName(text)
		if err != nil {
			return seq, err
		}
		text = name
	}
	if seq[index].Content == text {
		return seq, nil
	}
	out := seq.clone()
	out[index].Content = text
	return out, nil
}

// AddModifier appends tag to the chosen list, enforcing the per-section cap.
func AddModifier(seq Sequence, index int, tag string, pos Position) (Sequence, error) {
	if err := seq.check(index); err != nil {
		return seq, err
	}
	tag = strings.TrimSpace(tag)
	if !ValidTag(tag) {
		return seq, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	s := seq[index]
	if pos == PositionSuffix && s.Kind != KindStructureModifier {
		return seq, ErrInvalidPosition
	}
	if s.Modifiers.Count() >= MaxModifiers {
		return seq, ErrModifierLimitExceeded
	}
	mods := s.Modifiers.clone()
	if pos == PositionSuffix {
		mods.Suffix = append(mods.Suffix, tag)
	} else {
		mods.Prefix = append(mods.Prefix, tag)
	}
	out := seq.clone()
	out[index].Modifiers = mods
	return out, nil
}

// RemoveModifier drops the first occurrence of tag from the chosen list.
// A missing tag leaves the sequence unchanged.
func RemoveModifier(seq Sequence, index int, tag string, pos Position) (Sequence, error) {
	if err := seq.check(index); err != nil {
		return seq, err
	}
	mods := seq[index].Modifiers
	list := mods.Prefix
	if pos == PositionSuffix {
		list = mods.Suffix
	}
	at := -1
	for i, t := range list {
		if t == tag {
			at = i
			break
		}
	}
	if at < 0 {
		return seq, nil
	}
	trimmed := make([]string, 0, len(list)-1)
	trimmed = append(trimmed, list[:at]...)
	trimmed = append(trimmed, list[at+1:]...)

	next := mods.clone()
	if pos == PositionSuffix {
		next.Suffix = trimmed
	} else {
		next.Prefix = trimmed
	}
	out := seq.clone()
	out[index].Modifiers = next
	return out, nil
}
