package songs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"songwriter-go/utils"
)

// MaxStyleLength caps the combined style text in characters.
const MaxStyleLength = 120

var ErrStyleLengthExceeded = errors.New("style tags exceed 120 characters")

// Style maps a style category (genre, mood, tempo...) to its tag set.
type Style map[string][]string

// Clone returns a deep copy.
func (st Style) Clone() Style {
	out := make(Style, len(st))
	for k, v := range st {
		out[k] = append([]string{}, v...)
	}
	return out
}

// Categories returns the category names in sorted order.
func (st Style) Categories() []string {
	keys := make([]string, 0, len(st))
	for k := range st {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Text joins every tag with ", ", categories in sorted order. Its length is
// what the style limit measures.
func (st Style) Text() string {
	var tags []string
	for _, category := range st.Categories() {
		tags = append(tags, st[category]...)
	}
	return strings.Join(tags, ", ")
}

// Length returns the measured style length in characters.
func (st Style) Length() int {
	return utils.RuneLen(st.Text())
}

// NormalizeStyle trims category names and tags, drops empties and turns each
// tag list into an ordered set.
func NormalizeStyle(st Style) Style {
	out := make(Style, len(st))
	for category, tags := range st {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		set := utils.DedupeTrimmed(append(out[category], tags...))
		if len(set) == 0 {
			continue
		}
		out[category] = set
	}
	return out
}

// ValidateStyle normalizes st and rejects it whole when it is too long.
func ValidateStyle(st Style) (Style, error) {
	normalized := NormalizeStyle(st)
	if n := normalized.Length(); n > MaxStyleLength {
		return nil, &StyleLengthError{Length: n}
	}
	return normalized, nil
}

// StyleLengthError reports the measured length of a rejected style.
type StyleLengthError struct {
	Length int
}

func (e *StyleLengthError) Error() string {
	return fmt.Sprintf("%v: %d characters", ErrStyleLengthExceeded, e.Length)
}

func (e *StyleLengthError) Unwrap() error {
	return ErrStyleLengthExceeded
}
