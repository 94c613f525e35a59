package trie

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/rethinkdns/ftrie/bitio"
	"github.com/rethinkdns/ftrie/codec"
	"github.com/rethinkdns/ftrie/rank"
)

// FrozenTrie is the immutable reader over the two frozen blobs. It is safe
// for concurrent lookups: the bit streams never change after Open, node
// accessors are value types, and both caches are internally synchronized.
type FrozenTrie struct {
	cfg Config
	cdc *codec.Codec

	data *bitio.Reader
	dir  *rank.Directory

	// letterStart is the bit offset of the fixed-width letter stream:
	// the child-count stream occupies exactly 2*nodeCount+1 bits.
	letterStart uint64
	bitslen     int
	w           int
	nodeCount   uint64

	rcache *radixCache
	vcache *lru.Cache // final-node index -> []uint16 decoded ordinals
}

// Open mounts the trie and rank-directory blobs. The configuration must
// carry the node count and layout flags the build produced; geometry that
// disagrees with the blob sizes is rejected.
func Open(td, rd []byte, cfg Config) (*FrozenTrie, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.NodeCount <= 0 {
		return nil, fmt.Errorf("%w: nodecount %d", ErrConfigMismatch, cfg.NodeCount)
	}

	data, err := bitio.NewReaderBytes(td)
	if err != nil {
		return nil, fmt.Errorf("trie: mount td: %w", err)
	}

	nodeCount := uint64(cfg.NodeCount)
	letterStart := 2*nodeCount + 1
	bitslen := cfg.bitslen()
	if need := letterStart + nodeCount*uint64(bitslen); data.Len() < need {
		return nil, fmt.Errorf("%w: td has %d bits, %d nodes need %d",
			ErrConfigMismatch, data.Len(), nodeCount, need)
	}

	dir, err := rank.New(rd, data, letterStart, uint64(cfg.L1), uint64(cfg.L2), cfg.SelectSearch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMismatch, err)
	}

	t := &FrozenTrie{
		cfg:         cfg,
		cdc:         codec.For(cfg.UseCodec6),
		data:        data,
		dir:         dir,
		letterStart: letterStart,
		bitslen:     bitslen,
		w:           cfg.W(),
		nodeCount:   nodeCount,
		rcache:      newRadixCache(cfg.RadixCacheSize),
	}
	if cfg.ValueCacheSize > 0 {
		// Errors only on non-positive size, which is guarded above.
		t.vcache, _ = lru.New(cfg.ValueCacheSize)
	}
	return t, nil
}

// Codec returns the letter codec the trie was built with.
func (t *FrozenTrie) Codec() *codec.Codec { return t.cdc }

// NodeCount returns the number of level-order entries.
func (t *FrozenTrie) NodeCount() int { return int(t.nodeCount) }

// RadixCacheStats returns a snapshot of the radix cache counters.
func (t *FrozenTrie) RadixCacheStats() RadixCacheStats { return t.rcache.stats() }

// radix resolves the radix-word descriptor for the child at child-local
// position loc of the parent whose child span starts at firstChild. The
// returned loc is the child-local position of the run's first entry, and
// branch is the entry owning the run's children. The cursor accelerates
// repeated finds in the same region; callers thread it through a lookup.
func (t *FrozenTrie) radix(firstChild uint64, loc int, cursor int) (run radixRun, runLoc int, nextCursor int, err error) {
	c := t.nodeAt(firstChild + uint64(loc))

	// The common case: neither this entry nor its left sibling extends a
	// run, so the word is the single letter.
	leftLinked := loc > 0 && t.nodeAt(firstChild+uint64(loc)-1).chainLink()
	if !c.chainLink() && !leftLinked {
		return radixRun{word: []byte{c.letter()}, branch: c.idx}, loc, cursor, nil
	}

	if cached, lo, cur, ok := t.rcache.find(c.idx, cursor); ok {
		return cached, int(lo - firstChild), cur, nil
	}

	// Walk left to the run's first entry, collecting letters rightmost
	// first. Flag children never appear here: they sit below the first
	// letter child, outside any run.
	j := loc
	left := []byte{c.letter()}
	for j > 0 && t.nodeAt(firstChild+uint64(j)-1).chainLink() {
		j--
		left = append(left, t.nodeAt(firstChild+uint64(j)).letter())
	}
	for i, k := 0, len(left)-1; i < k; i, k = i+1, k-1 {
		left[i], left[k] = left[k], left[i]
	}

	// If the probed entry is itself a link, walk right to the entry that
	// terminates the run and owns its children.
	word := left
	branch := c.idx
	if c.chainLink() {
		k := c.idx
		for {
			k++
			if k >= t.nodeCount {
				return radixRun{}, 0, noCursor, fmt.Errorf("trie: unterminated radix run at %d", c.idx)
			}
			sib := t.nodeAt(k)
			word = append(word, sib.letter())
			if !sib.chainLink() {
				branch = k
				break
			}
		}
	}

	run = radixRun{word: word, branch: branch}
	lo := firstChild + uint64(j)
	t.rcache.put(lo, branch, run)
	return run, j, noCursor, nil
}

// value decodes the ordinal set carried by a final node's flag children.
// Small sets may be stored inline as raw ordinals (see Config.OptFlags);
// everything else is a two-level bitmap split across W-bit units.
func (t *FrozenTrie) value(n node) ([]uint16, error) {
	if t.vcache != nil {
		if v, ok := t.vcache.Get(n.idx); ok {
			return v.([]uint16), nil
		}
	}

	firstChild, count, err := n.children()
	if err != nil {
		return nil, err
	}
	var units []byte
	for j := uint64(0); j < count; j++ {
		ch := t.nodeAt(firstChild + j)
		if !ch.flag() {
			break
		}
		units = append(units, ch.letter())
	}
	if len(units) == 0 {
		return nil, nil
	}

	var tags []uint16
	if t.optInlineUnits(len(units)) {
		tags = make([]uint16, len(units))
		for i, u := range units {
			tags[i] = uint16(u)
		}
	} else {
		words, err := t.cdc.UnitsToWords(units)
		if err != nil {
			return nil, fmt.Errorf("trie: node %d value: %w", n.idx, err)
		}
		tags, err = codec.FlagsToTags(words)
		if err != nil {
			return nil, fmt.Errorf("trie: node %d value: %w", n.idx, err)
		}
	}
	if t.vcache != nil {
		t.vcache.Add(n.idx, tags)
	}
	return tags, nil
}

// optInlineUnits reports whether a flag-child count can only be the
// inline ordinal form. The smallest bitmap spans 4 units at W=8 and 6
// units at W=6, so the thresholds are unambiguous.
func (t *FrozenTrie) optInlineUnits(n int) bool {
	if !t.cfg.OptFlags {
		return false
	}
	if t.cfg.UseCodec6 {
		return n <= 4
	}
	return n <= 3
}
