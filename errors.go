package plist

import (
	"errors"
	"fmt"
)

// Error kinds reported when decoding fails. They are ordinary return
// values, matchable with errors.Is; a decode either yields a complete
// value or one of these.
var (
	// ErrUnrecognizedFormat is returned when the input matches no known
	// property list format. Callers probing a binary document may fall
	// back to the XML path on this error.
	ErrUnrecognizedFormat = errors.New("plist: unrecognized property list format")

	// ErrTruncated is returned when the document ends before a required
	// read completes.
	ErrTruncated = errors.New("plist: truncated document")

	// ErrOutOfBounds is returned when a computed offset or object
	// reference falls outside the document or the object table.
	ErrOutOfBounds = errors.New("plist: offset out of bounds")

	// ErrInvalidTrailer is returned when the binary trailer carries
	// nonsensical width fields.
	ErrInvalidTrailer = errors.New("plist: invalid trailer")

	// ErrUnrecognizedMarker is returned when an object's marker byte
	// selects no known type.
	ErrUnrecognizedMarker = errors.New("plist: unrecognized object marker")

	// ErrUnsupportedWidth is returned when an integer or real payload
	// width is outside the supported set.
	ErrUnsupportedWidth = errors.New("plist: unsupported payload width")

	// ErrInvalidText is returned when a string payload is not valid
	// ASCII or UTF-16.
	ErrInvalidText = errors.New("plist: malformed string payload")

	// ErrCyclicReference is returned when an object transitively
	// references itself.
	ErrCyclicReference = errors.New("plist: cyclic object reference")

	// ErrInvalidDictKey is returned when a dictionary key object is not
	// a string.
	ErrInvalidDictKey = errors.New("plist: dictionary key is not a string")
)

// invalidPlistError marks input that is not a property list of the
// named format at all, as opposed to a damaged one. The automatic
// format dispatcher uses it to try the next format.
type invalidPlistError struct {
	format string
	err    error
}

func (e invalidPlistError) Error() string {
	s := "plist: invalid " + e.format + " property list"
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

func (e invalidPlistError) Unwrap() error { return e.err }

// plistParseError wraps an error raised while parsing a document whose
// format was already established.
type plistParseError struct {
	format string
	err    error
}

func (e plistParseError) Error() string {
	s := "plist: error parsing " + e.format + " property list"
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

func (e plistParseError) Unwrap() error { return e.err }

func truncatedError(offset uint64, need uint64) error {
	return fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, need, offset)
}

func outOfBoundsError(what string, value uint64) error {
	return fmt.Errorf("%w: %s %d", ErrOutOfBounds, what, value)
}
