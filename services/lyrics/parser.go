package lyrics

import (
	"strconv"
	"strings"

	"songwriter-go/logcolors"
	"songwriter-go/utils"

	log "github.com/sirupsen/logrus"
)

const (
	blockSeparator = "\n\n"
	bodyMarker     = "|||"
)

// ParseReport describes what a parse dropped.
type ParseReport struct {
	Blocks  int `json:"blocks"`
	Dropped int `json:"dropped"`
}

// block is one raw header/body pair produced by the scanner.
type block struct {
	header  string
	body    string
	hasBody bool
}

// Parse converts flat annotated lyrics into an ordered section sequence.
// Blocks that cannot be classified are dropped.
func Parse(text string) Sequence {
	seq, _ := ParseWithReport(text)
	return seq
}

// ParseWithReport is Parse plus a count of dropped blocks.
func ParseWithReport(text string) (Sequence, ParseReport) {
	raw := splitBlocks(strings.ReplaceAll(text, "\r\n", "\n"))
	var report ParseReport
	seq := make(Sequence, 0, len(raw))

	for _, chunk := range raw {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		report.Blocks++
		b, ok := scanBlock(chunk)
		if !ok {
			report.Dropped++
			log.Debugf("%s Dropping malformed block %q", logcolors.LogParser, utils.TruncateRunes(chunk, 40))
			continue
		}
		section, ok := classify(strings.Fields(b.header), b)
		if !ok {
			report.Dropped++
			log.Debugf("%s Dropping block with empty header", logcolors.LogParser)
			continue
		}
		section.ID = newID()
		seq = append(seq, section)
	}
	return seq, report
}

// splitBlocks cuts text at every blank line that is directly followed by '['.
func splitBlocks(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var blocks []string
	rest := text
	for {
		idx := strings.Index(rest, blockSeparator+"[")
		if idx < 0 {
			blocks = append(blocks, rest)
			return blocks
		}
		blocks = append(blocks, rest[:idx])
		rest = rest[idx+len(blockSeparator):]
	}
}

// splitsBlock reports whether body text would start a new block when the
// serialized section is parsed again.
func splitsBlock(content string) bool {
	return strings.Contains(strings.ReplaceAll(content, "\r\n", "\n"), blockSeparator+"[")
}

// scanBlock extracts the header and optional body of one block.
func scanBlock(chunk string) (block, bool) {
	s := strings.TrimLeft(chunk, " \t\r\n")
	if !strings.HasPrefix(s, "[") {
		return block{}, false
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return block{}, false
	}
	header := s[1:end]
	if strings.ContainsRune(header, '[') {
		return block{}, false
	}
	rest := s[end+1:]
	if strings.HasPrefix(rest, bodyMarker) {
		return block{header: header, body: rest[len(bodyMarker):], hasBody: true}, true
	}
	if strings.TrimSpace(rest) != "" {
		return block{}, false
	}
	return block{header: header}, true
}

// classify applies the header disambiguation rules in order:
// verse token, known or bodied lyric kind, then structure marker.
func classify(tokens []string, b block) (Section, bool) {
	if len(tokens) == 0 {
		return Section{}, false
	}

	if verseAt := indexFold(tokens, string(KindVerse)); verseAt >= 0 {
		number := 1
		skip := -1
		if next := verseAt + 1; next < len(tokens) {
			if n, err := strconv.Atoi(tokens[next]); err == nil {
				skip = next
				if n >= 1 {
					number = n
				}
			}
		}
		prefix := make([]string, 0, len(tokens))
		for i, tok := range tokens {
			if i == verseAt || i == skip {
				continue
			}
			prefix = append(prefix, tok)
		}
		return Section{
			Kind:        KindVerse,
			Content:     b.body,
			VerseNumber: number,
			Modifiers:   Modifiers{Prefix: prefix},
		}, true
	}

	base := tokens[len(tokens)-1]
	leading := append([]string{}, tokens[:len(tokens)-1]...)

	if kind, ok := knownKind(base); ok {
		return Section{Kind: kind, Content: b.body, Modifiers: Modifiers{Prefix: leading}}, true
	}
	if b.hasBody {
		return Section{Kind: Kind(base), Content: b.body, Modifiers: Modifiers{Prefix: leading}}, true
	}

	// Suffix placement is not recoverable from header order, so every
	// leading token is read back as a prefix.
	return Section{
		Kind:      KindStructureModifier,
		Content:   base,
		Modifiers: Modifiers{Prefix: leading, Suffix: []string{}},
	}, true
}

func indexFold(tokens []string, want string) int {
	for i, tok := range tokens {
		if strings.EqualFold(tok, want) {
			return i
		}
	}
	return -1
}
