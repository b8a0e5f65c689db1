package lyrics

import (
	"strconv"
	"strings"
)

// Serialize flattens a sequence into the annotated lyrics format. It is the
// left inverse of Parse for sequences built by the section operations, with
// the exception of structure-marker suffix tags.
func Serialize(seq Sequence) string {
	blocks := make([]string, 0, len(seq))
	for _, s := range seq {
		blocks = append(blocks, serializeSection(s))
	}
	return strings.Join(blocks, blockSeparator)
}

func serializeSection(s Section) string {
	var b strings.Builder
	b.WriteByte('[')

	switch s.Kind {
	case KindStructureModifier:
		writeTokens(&b, s.Modifiers.Prefix, s.Content, s.Modifiers.Suffix)
		b.WriteByte(']')
		return b.String()
	case KindVerse:
		n := s.VerseNumber
		if n < 1 {
			n = 1
		}
		writeTokens(&b, s.Modifiers.Prefix, string(KindVerse)+" "+strconv.Itoa(n), nil)
	default:
		writeTokens(&b, s.Modifiers.Prefix, string(s.Kind), nil)
	}

	b.WriteByte(']')
	b.WriteString(bodyMarker)
	b.WriteString(s.Content)
	return b.String()
}

func writeTokens(b *strings.Builder, before []string, base string, after []string) {
	first := true
	write := func(tok string) {
		if !first {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
		first = false
	}
	for _, tok := range before {
		write(tok)
	}
	write(base)
	for _, tok := range after {
		write(tok)
	}
}
