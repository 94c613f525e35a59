package trie

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/bits-and-blooms/bitset"

	"github.com/rethinkdns/ftrie/bitio"
	"github.com/rethinkdns/ftrie/codec"
	"github.com/rethinkdns/ftrie/log"
	"github.com/rethinkdns/ftrie/metrics"
	"github.com/rethinkdns/ftrie/rank"
)

// Node entry headers. The 2-bit header shares one packed field with the
// W-bit letter; flag (value) nodes reuse the compressed+final pattern,
// which is why a node is never both compressed and final in its own right.
const (
	hdrPlain      = 0b00 // interior node
	hdrFinal      = 0b01 // the path ending here is a complete key
	hdrCompressed = 0b10 // interior link of a radix run
	hdrFlag       = 0b11 // one code unit of the parent's tag bitmap
)

// buildNode is one edge of the in-memory prefix tree: a letter run, the
// final marker, the child list (kept in ascending first-letter order by
// the sorted insert discipline), and the accumulated tag set for final
// nodes.
type buildNode struct {
	letters  []byte
	final    bool
	children []*buildNode
	tags     *bitset.BitSet
}

// Builder assembles the trie from a lex-sorted stream of encoded inserts
// and freezes it into the trie and rank-directory blobs. Inserts must be
// strictly ascending; the builder keeps only the node path of the
// previous insert, so a single out-of-order word would corrupt the tree.
// Builders are single-use: after Build the state is discarded.
type Builder struct {
	cfg Config
	cdc *codec.Codec

	root      *buildNode
	prev      []byte
	path      []*buildNode // nodes along the previous key, root first
	inserted  int
	finalized bool

	lg *log.Logger
}

// NewBuilder returns a Builder for the given configuration.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root := &buildNode{}
	return &Builder{
		cfg:  cfg,
		cdc:  codec.For(cfg.UseCodec6),
		root: root,
		path: []*buildNode{root},
		lg:   log.Default().Module("trie"),
	}, nil
}

// Codec returns the letter codec the builder encodes with.
func (b *Builder) Codec() *codec.Codec { return b.cdc }

// Count returns the number of inserts accepted so far.
func (b *Builder) Count() int { return b.inserted }

// EncodeInsert renders one host/ordinal pair into the encoded insert
// word: the reversed host's code units, the tag delimiter, then the
// reversed decimal digits of the ordinal. Sorting these words bytewise
// groups all ordinals of one host adjacently, because the delimiter sorts
// below every host symbol.
func EncodeInsert(c *codec.Codec, host string, ordinal int) ([]byte, error) {
	if ordinal < 0 || ordinal >= codec.MaxTag {
		return nil, fmt.Errorf("%w: %d", ErrBadOrdinal, ordinal)
	}
	key, err := c.Encode(codec.ReverseString(host))
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(key, c.Delim()) >= 0 {
		return nil, fmt.Errorf("%w: host %q contains the tag delimiter", ErrNoDelimiter, host)
	}
	digits, err := c.Encode(codec.ReverseString(strconv.Itoa(ordinal)))
	if err != nil {
		return nil, err
	}
	word := make([]byte, 0, len(key)+1+len(digits))
	word = append(word, key...)
	word = append(word, c.Delim())
	word = append(word, digits...)
	return word, nil
}

// matchLen returns the length of the common prefix of a and b.
func matchLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for ; i < n; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

// Insert adds one encoded word (see EncodeInsert) to the tree. Words must
// arrive in strictly ascending bytewise order.
func (b *Builder) Insert(word []byte) error {
	if b.finalized {
		return ErrFinalized
	}
	if b.prev != nil && bytes.Compare(word, b.prev) <= 0 {
		return fmt.Errorf("%w: %v after %v", ErrOutOfOrder, word, b.prev)
	}

	di := bytes.IndexByte(word, b.cdc.Delim())
	if di < 0 {
		return fmt.Errorf("%w: %v", ErrNoDelimiter, word)
	}
	if di == 0 {
		return fmt.Errorf("%w: empty key in %v", ErrNoDelimiter, word)
	}
	key := word[:di]
	ordinal, err := b.parseOrdinal(word[di+1:])
	if err != nil {
		return err
	}

	// Descend along the previous insert's path. The sorted order
	// guarantees the new key diverges from the tree somewhere on that
	// path, so no tree search is needed.
	d := 0
	keep := 1
	cur := b.root
	for pi := 1; pi < len(b.path); pi++ {
		n := b.path[pi]
		m := matchLen(n.letters, key[d:])
		if m == len(n.letters) {
			d += m
			cur = n
			keep = pi + 1
			continue
		}
		if m > 0 {
			// The key diverges inside this node's letter run: split it.
			// The successor inherits the remaining letters, the final
			// bit, the tag set and the children; the truncated node
			// becomes a plain interior node.
			suffix := &buildNode{
				letters:  append([]byte(nil), n.letters[m:]...),
				final:    n.final,
				children: n.children,
				tags:     n.tags,
			}
			n.letters = n.letters[:m:m]
			n.final = false
			n.tags = nil
			n.children = []*buildNode{suffix}
			d += m
			cur = n
			keep = pi + 1
		}
		break
	}
	b.path = b.path[:keep]

	terminal := cur
	if remaining := key[d:]; len(remaining) > 0 {
		if len(cur.children) > 0 {
			if last := cur.children[len(cur.children)-1]; last.letters[0] >= remaining[0] {
				return fmt.Errorf("%w: child %d after %d", ErrOutOfOrder, remaining[0], last.letters[0])
			}
		}
		terminal = &buildNode{
			letters: append([]byte(nil), remaining...),
			final:   true,
		}
		cur.children = append(cur.children, terminal)
		b.path = append(b.path, terminal)
	}

	terminal.final = true
	if terminal.tags == nil {
		terminal.tags = bitset.New(codec.MaxTag)
	}
	terminal.tags.Set(uint(ordinal))

	b.prev = append(b.prev[:0], word...)
	b.inserted++
	return nil
}

// parseOrdinal decodes the reversed decimal digits trailing the
// delimiter.
func (b *Builder) parseOrdinal(units []byte) (int, error) {
	if len(units) == 0 {
		return 0, fmt.Errorf("%w: missing digits", ErrBadOrdinal)
	}
	s, err := b.cdc.Decode(codec.Reverse(units))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadOrdinal, err)
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v >= codec.MaxTag {
		return 0, fmt.Errorf("%w: %q", ErrBadOrdinal, s)
	}
	return v, nil
}

// emitEntry is one element of the level-order node array. Synthetic
// entries (radix links, flag units) carry no build node and own no
// children.
type emitEntry struct {
	header uint8
	letter byte
	node   *buildNode
}

// Build freezes the tree. It walks the nodes breadth-first, emitting the
// unary child-count stream and the level-order entry array, then packs
// the fixed-width letter stream behind the child counts and constructs
// the rank directory. The returned node count is the number of letter
// entries and is required to mount the blobs.
func (b *Builder) Build() (td, rd []byte, nodeCount int, err error) {
	if b.finalized {
		return nil, nil, 0, ErrFinalized
	}
	b.finalized = true
	b.path = nil
	b.prev = nil

	timer := metrics.NewTimer(metrics.DefaultRegistry.Histogram("trie/build/ms"))
	defer timer.Stop()

	louds := bitio.NewWriter()
	// The synthetic super-root has exactly one child: the true root.
	louds.Write(0b10, 2)

	queue := []emitEntry{{header: hdrPlain, node: b.root}}
	for qi := 0; qi < len(queue); qi++ {
		e := queue[qi]
		if e.node == nil {
			// Radix links and flag units never own children.
			louds.Write(0, 1)
			continue
		}
		n := e.node

		units := b.flagUnits(n)
		size := len(units)
		for _, c := range n.children {
			size += len(c.letters)
		}
		for k := 0; k < size; k++ {
			louds.Write(1, 1)
		}
		louds.Write(0, 1)

		// Flag children precede all letter children.
		for _, u := range units {
			queue = append(queue, emitEntry{header: hdrFlag, letter: u})
		}
		// A multi-letter child flattens into a chain of compressed links
		// terminated by the entry that carries its header and children.
		for _, c := range n.children {
			letters := c.letters
			for j := 0; j < len(letters)-1; j++ {
				queue = append(queue, emitEntry{header: hdrCompressed, letter: letters[j]})
			}
			h := uint8(hdrPlain)
			if c.final {
				h = hdrFinal
			}
			queue = append(queue, emitEntry{header: h, letter: letters[len(letters)-1], node: c})
		}
		n.children = nil
		n.tags = nil
	}

	nodeCount = len(queue)
	numBits := uint64(2*nodeCount + 1)
	if louds.Len() != numBits {
		return nil, nil, 0, fmt.Errorf("trie: louds stream is %d bits for %d nodes, want %d",
			louds.Len(), nodeCount, numBits)
	}

	// The letter stream sits directly behind the child-count stream, one
	// (W+2)-bit packed entry per node.
	w := b.cfg.W()
	for _, e := range queue {
		louds.Write(uint32(e.header)<<uint(w)|uint32(e.letter), b.cfg.bitslen())
	}

	data := louds.Reader()
	_, rd, err = rank.Build(data, numBits, uint64(b.cfg.L1), uint64(b.cfg.L2), b.cfg.SelectSearch)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("trie: rank directory: %w", err)
	}
	td = louds.Bytes()

	metrics.DefaultRegistry.Counter("trie/build/inserts").Add(int64(b.inserted))
	metrics.DefaultRegistry.Counter("trie/build/nodes").Add(int64(nodeCount))
	if b.cfg.Debug {
		b.lg.Debug("trie frozen",
			"inserts", b.inserted,
			"nodes", nodeCount,
			"td_bytes", len(td),
			"rd_bytes", len(rd))
	}
	b.root = nil
	return td, rd, nodeCount, nil
}

// flagUnits encodes a node's tag set into its flag-child code units, or
// nil when the node carries no tags. Small sets go inline as raw ordinals
// when optflags allows; the inline form is always shorter than the
// smallest bitmap form, so the reader can tell them apart by unit count.
func (b *Builder) flagUnits(n *buildNode) []byte {
	if n.tags == nil || n.tags.Count() == 0 {
		return nil
	}
	var tags []uint16
	for i, ok := n.tags.NextSet(0); ok; i, ok = n.tags.NextSet(i + 1) {
		tags = append(tags, uint16(i))
	}
	if b.optInline(tags) {
		units := make([]byte, len(tags))
		for i, tag := range tags {
			units[i] = byte(tag)
		}
		return units
	}
	return b.cdc.WordsToUnits(codec.TagsToFlags(tags))
}

// optInline reports whether a tag set qualifies for the inline ordinal
// representation: at most 3 ordinals under the 8-bit codec, at most 4
// under the 6-bit codec with every ordinal small enough to fit one
// letter.
func (b *Builder) optInline(tags []uint16) bool {
	if !b.cfg.OptFlags {
		return false
	}
	if b.cfg.UseCodec6 {
		return len(tags) <= 4 && tags[len(tags)-1] < 1<<6
	}
	return len(tags) <= 3
}

// BuildAll runs a full build over a pre-sorted input slice and returns
// the blobs plus the emitted node count.
func BuildAll(inputs [][]byte, cfg Config) (td, rd []byte, nodeCount int, err error) {
	b, err := NewBuilder(cfg)
	if err != nil {
		return nil, nil, 0, err
	}
	for _, word := range inputs {
		if err := b.Insert(word); err != nil {
			return nil, nil, 0, err
		}
	}
	return b.Build()
}
