package lyrics

import "errors"

var (
	ErrIndexOutOfRange       = errors.New("section index out of range")
	ErrModifierLimitExceeded = errors.New("a section can hold at most 2 modifiers")
	ErrInvalidTag            = errors.New("invalid modifier tag")
	ErrInvalidKind           = errors.New("invalid section kind")
	ErrInvalidPosition       = errors.New("suffix modifiers are only allowed on structure markers")
	ErrNotVerse              = errors.New("section is not a verse")
	ErrInvalidVerseNumber    = errors.New("verse number must be between 1 and 7")
	ErrAmbiguousContent      = errors.New("section content cannot contain a blank line followed by '['")

	// ErrBlankMarker cancels adding a structure marker with no name.
	ErrBlankMarker   = errors.New("structure marker name is blank")
	ErrInvalidMarker = errors.New("structure marker name must be a single word that is not a section kind")
)
