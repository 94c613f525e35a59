// Package trie implements a compact, read-optimized dictionary of reversed
// host names tagged with blocklist ordinal sets. A Builder consumes a
// lex-sorted stream of encoded inserts and freezes them into two immutable
// bit blobs: a level-order unary-degree (LOUDS) child-count stream packed
// together with a fixed-width letter stream, and a rank directory over the
// child-count bits. A FrozenTrie mounts the blobs and answers suffix
// lookups without materializing any node structure.
package trie

import (
	"errors"
	"fmt"

	"github.com/rethinkdns/ftrie/rank"
)

// Config enumerates the build/read options. The same record must be used
// on both sides: the blobs do not carry their own geometry.
type Config struct {
	// Version identifies the artifact generation this dictionary belongs
	// to (carried into basicconfig.json; no effect on the byte layout).
	Version int

	// UseCodec6 selects the 6-bit letter alphabet; otherwise letters are
	// raw 8-bit symbols.
	UseCodec6 bool

	// SelectSearch selects the select-as-rank directory layout; otherwise
	// the classic two-level popcount layout is used.
	SelectSearch bool

	// OptFlags stores small tag sets inline as raw ordinals instead of as
	// a bitmap: up to 3 tags under the 8-bit codec, up to 4 under the
	// 6-bit codec when every ordinal fits a single letter.
	OptFlags bool

	// Inspect enables the diagnostic dump of a frozen trie. Diagnostics
	// only; no effect on outputs.
	Inspect bool

	// Debug enables verbose builder logging. Diagnostics only.
	Debug bool

	// NodeCount is the number of letter-stream entries. It is produced by
	// the build and required to mount the blobs.
	NodeCount int

	// L1 and L2 are the rank directory block sizes. L1 must be a multiple
	// of L2.
	L1 int
	L2 int

	// RadixCacheSize bounds the radix-word cache of a frozen trie, in
	// entries. Zero disables the cache.
	RadixCacheSize int

	// ValueCacheSize bounds the decoded tag-set cache of a frozen trie,
	// in entries. Zero disables the cache.
	ValueCacheSize int
}

// DefaultConfig returns a Config with the layout the production blocklist
// artifacts use.
func DefaultConfig() Config {
	return Config{
		Version:        1,
		UseCodec6:      true,
		SelectSearch:   true,
		OptFlags:       true,
		L1:             rank.DefaultL1,
		L2:             rank.DefaultL2,
		RadixCacheSize: 512,
		ValueCacheSize: 256,
	}
}

// W returns the letter width in bits.
func (c Config) W() int {
	if c.UseCodec6 {
		return 6
	}
	return 8
}

// bitslen returns the packed width of one node entry: a 2-bit header
// followed by the W-bit letter.
func (c Config) bitslen() int { return c.W() + 2 }

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.L1 <= 0 || c.L2 <= 0 {
		return fmt.Errorf("config: block sizes must be positive, got %d/%d", c.L1, c.L2)
	}
	if c.L1%c.L2 != 0 {
		return fmt.Errorf("config: l1 %d must be a multiple of l2 %d", c.L1, c.L2)
	}
	if c.NodeCount < 0 {
		return fmt.Errorf("config: negative nodecount %d", c.NodeCount)
	}
	if c.RadixCacheSize < 0 || c.ValueCacheSize < 0 {
		return errors.New("config: cache sizes must not be negative")
	}
	return nil
}
