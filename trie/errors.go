package trie

import "errors"

var (
	// ErrOutOfOrder is returned when inserts are not strictly ascending in
	// the lexicographic order of their encoded units.
	ErrOutOfOrder = errors.New("trie: inserts must be in sorted order")

	// ErrNoDelimiter is returned when an inserted word lacks the tag
	// delimiter separating the host from its ordinal digits, or when a
	// host would smuggle the delimiter into the key.
	ErrNoDelimiter = errors.New("trie: insert without tag delimiter")

	// ErrBadOrdinal is returned when the ordinal suffix of an insert does
	// not parse or falls outside the tag space.
	ErrBadOrdinal = errors.New("trie: bad ordinal")

	// ErrFinalized is returned when Insert is called after Build.
	ErrFinalized = errors.New("trie: builder already finalized")

	// ErrConfigMismatch is returned when the configured geometry
	// (nodecount, letter width, block sizes) disagrees with the blobs.
	ErrConfigMismatch = errors.New("trie: config disagrees with blobs")
)
