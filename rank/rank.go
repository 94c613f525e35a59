// Package rank implements the two-level rank/select directory over the
// trie's level-order child-count bit stream. Two layouts are supported:
//
//   - the popcount layout stores cumulative one-counts at L1 boundaries and
//     intra-block counts at L2 boundaries; select is answered by binary
//     search over rank;
//   - the select-as-rank layout stores the absolute position of every
//     L2-th zero, turning select(0,·) into one directory read plus a short
//     zero scan on the data stream.
//
// The directory owns its own bit blob and holds a read-only view of the
// data stream it summarizes.
package rank

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/rethinkdns/ftrie/bitio"
)

const (
	// DefaultL1 and DefaultL2 are the directory block sizes unless the
	// configuration overrides them. L1 must be a multiple of L2.
	DefaultL1 = 1024
	DefaultL2 = 32
)

var (
	// ErrUnsupported is returned for select(1,·) under the select-as-rank
	// layout, which only records zero positions.
	ErrUnsupported = errors.New("rank: operation unsupported by layout")

	// ErrBlockSize is returned when L1/L2 are invalid.
	ErrBlockSize = errors.New("rank: invalid block sizes")

	// ErrRange is returned for rank/select arguments outside the stream.
	ErrRange = errors.New("rank: argument out of range")

	// ErrDirectory is returned when the directory blob does not match the
	// stream geometry it is mounted against.
	ErrDirectory = errors.New("rank: directory blob size mismatch")
)

// Directory answers rank and select queries over a frozen bit stream.
type Directory struct {
	data    *bitio.Reader // the summarized stream; not owned
	dir     *bitio.Reader
	numBits uint64
	l1, l2  uint64
	l1Bits  int
	l2Bits  int
	// sectionBits is the directory footprint of one L1 super-block in the
	// popcount layout.
	sectionBits  uint64
	selectSearch bool
}

// checkGeometry validates block sizes against the stream length.
func checkGeometry(numBits, l1, l2 uint64) error {
	if l1 == 0 || l2 == 0 || l1%l2 != 0 {
		return fmt.Errorf("%w: l1=%d l2=%d", ErrBlockSize, l1, l2)
	}
	if numBits == 0 {
		return fmt.Errorf("%w: empty stream", ErrRange)
	}
	return nil
}

// widths returns the entry widths derived from the stream geometry.
func widths(numBits, l1 uint64) (l1Bits, l2Bits int) {
	l1Bits = bits.Len64(numBits)
	l2Bits = bits.Len64(l1)
	return l1Bits, l2Bits
}

// Build scans the data stream and constructs the directory blob for the
// requested layout. The returned Directory is mounted over the fresh blob;
// its serialized form is available via Blob.
func Build(data *bitio.Reader, numBits, l1, l2 uint64, selectSearch bool) (*Directory, []byte, error) {
	if err := checkGeometry(numBits, l1, l2); err != nil {
		return nil, nil, err
	}
	if numBits > data.Len() {
		return nil, nil, fmt.Errorf("%w: stream has %d bits, directory covers %d",
			ErrRange, data.Len(), numBits)
	}
	l1Bits, l2Bits := widths(numBits, l1)
	w := bitio.NewWriter()

	if selectSearch {
		// One entry per L2 zeros: the absolute position of zero number
		// j*L2 (zeros counted 1-based). Entry 0 is position 0; bit 0 of
		// the child-count stream is always a one, so the zero walk can
		// start at entry+1 uniformly.
		w.Write(0, l1Bits)
		var zeros uint64
		for p := uint64(0); p < numBits; p++ {
			if data.Get(p, 1) == 0 {
				zeros++
				if zeros%l2 == 0 {
					w.Write(uint32(p), l1Bits)
				}
			}
		}
	} else {
		var count1, count2 uint64
		for p := uint64(0); p+l2 <= numBits; {
			count2 += uint64(data.Count(p, l2))
			p += l2
			if p%l1 == 0 {
				count1 += count2
				w.Write(uint32(count1), l1Bits)
				count2 = 0
			} else {
				w.Write(uint32(count2), l2Bits)
			}
		}
	}

	d := &Directory{
		data:         data,
		dir:          w.Reader(),
		numBits:      numBits,
		l1:           l1,
		l2:           l2,
		l1Bits:       l1Bits,
		l2Bits:       l2Bits,
		sectionBits:  (l1/l2-1)*uint64(l2Bits) + uint64(l1Bits),
		selectSearch: selectSearch,
	}
	return d, w.Bytes(), nil
}

// New mounts a directory blob produced by Build against its data stream.
func New(blob []byte, data *bitio.Reader, numBits, l1, l2 uint64, selectSearch bool) (*Directory, error) {
	if err := checkGeometry(numBits, l1, l2); err != nil {
		return nil, err
	}
	dir, err := bitio.NewReaderBytes(blob)
	if err != nil {
		return nil, fmt.Errorf("rank: mount directory: %w", err)
	}
	l1Bits, l2Bits := widths(numBits, l1)
	d := &Directory{
		data:         data,
		dir:          dir,
		numBits:      numBits,
		l1:           l1,
		l2:           l2,
		l1Bits:       l1Bits,
		l2Bits:       l2Bits,
		sectionBits:  (l1/l2-1)*uint64(l2Bits) + uint64(l1Bits),
		selectSearch: selectSearch,
	}
	if dir.Len() < d.minDirBits() {
		return nil, fmt.Errorf("%w: have %d bits, want at least %d",
			ErrDirectory, dir.Len(), d.minDirBits())
	}
	return d, nil
}

// minDirBits returns the smallest directory blob the geometry requires.
// Select-as-rank entry counts depend on the zero density of the data, so
// only the mandatory leading entry is counted there.
func (d *Directory) minDirBits() uint64 {
	if d.selectSearch {
		return uint64(d.l1Bits)
	}
	blocks := d.numBits / d.l2
	sections := blocks / (d.l1 / d.l2)
	l2Entries := blocks - sections
	return sections*uint64(d.l1Bits) + l2Entries*uint64(d.l2Bits)
}

// NumBits returns the number of data-stream bits the directory covers.
func (d *Directory) NumBits() uint64 { return d.numBits }

// Rank returns the number of which-bits in positions [0, x] of the data
// stream.
func (d *Directory) Rank(which int, x uint64) (uint64, error) {
	if x >= d.numBits {
		return 0, fmt.Errorf("%w: rank(%d, %d) over %d bits", ErrRange, which, x, d.numBits)
	}
	if d.selectSearch {
		r0, err := d.rank0SelectSearch(x)
		if err != nil {
			return 0, err
		}
		if which == 0 {
			return r0, nil
		}
		return x + 1 - r0, nil
	}
	r1 := d.rank1Popcount(x)
	if which == 1 {
		return r1, nil
	}
	return x + 1 - r1, nil
}

// rank1Popcount resolves rank(1, x) from the two-level popcount directory
// plus a popcount over the trailing partial L2 block of the data stream.
func (d *Directory) rank1Popcount(x uint64) uint64 {
	var r uint64
	o := x
	var sectionPos uint64
	if o >= d.l1 {
		sectionPos = o / d.l1 * d.sectionBits
		r = uint64(d.dir.Get(sectionPos-uint64(d.l1Bits), d.l1Bits))
		o = o % d.l1
	}
	if o >= d.l2 {
		sectionPos += o / d.l2 * uint64(d.l2Bits)
		r += uint64(d.dir.Get(sectionPos-uint64(d.l2Bits), d.l2Bits))
	}
	r += uint64(d.data.Count(x-x%d.l2, x%d.l2+1))
	return r
}

// rank0SelectSearch counts zeros in [0, x] by locating the nearest stored
// zero position at or before x and popcounting the remainder.
func (d *Directory) rank0SelectSearch(x uint64) (uint64, error) {
	entries := d.dir.Len() / uint64(d.l1Bits)
	// Largest entry j with position(j) <= x. Entries past the written
	// tail read as zero from the blob padding; position 0 is only valid
	// for entry 0 (bit 0 of a child-count stream is a one), so zero
	// values beyond it are treated as absent.
	lo, hi := uint64(0), entries
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		pos := uint64(d.dir.Get(mid*uint64(d.l1Bits), d.l1Bits))
		if pos != 0 && pos <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	base := uint64(d.dir.Get(lo*uint64(d.l1Bits), d.l1Bits))
	span := x - base
	zeros := span - uint64(d.data.Count(base+1, span))
	return lo*d.l2 + zeros, nil
}

// Select returns the position of the y-th which-bit (y counted from 1),
// the smallest position whose rank equals y. Under the select-as-rank
// layout only select(0,·) is answered; select(1,·) returns ErrUnsupported.
func (d *Directory) Select(which int, y uint64) (uint64, error) {
	if d.selectSearch {
		if which != 0 {
			return 0, fmt.Errorf("%w: select(1,·) under select-as-rank", ErrUnsupported)
		}
		return d.Select0(y)
	}
	return d.selectBinary(which, y)
}

// Select0 returns the position of the y-th zero (y >= 1).
func (d *Directory) Select0(y uint64) (uint64, error) {
	if y == 0 {
		return 0, fmt.Errorf("%w: select0(0)", ErrRange)
	}
	if !d.selectSearch {
		return d.selectBinary(0, y)
	}
	j := y / d.l2
	rem := y % d.l2
	entries := d.dir.Len() / uint64(d.l1Bits)
	if j >= entries {
		return 0, fmt.Errorf("%w: select0(%d) beyond directory", ErrRange, y)
	}
	base := uint64(d.dir.Get(j*uint64(d.l1Bits), d.l1Bits))
	if base == 0 && j > 0 {
		// Blob padding reads as zero; a real entry past the first never
		// stores position 0.
		return 0, fmt.Errorf("%w: select0(%d) beyond directory", ErrRange, y)
	}
	if rem == 0 {
		return base, nil
	}
	pos, err := d.data.Pos0(base+1, uint32(rem))
	if err != nil {
		return 0, fmt.Errorf("rank: select0(%d): %w", y, err)
	}
	return pos, nil
}

// selectBinary resolves select by binary search over Rank.
func (d *Directory) selectBinary(which int, y uint64) (uint64, error) {
	var val uint64
	found := false
	lo := int64(-1)
	hi := int64(d.numBits)
	for lo+1 < hi {
		probe := (lo + hi) / 2
		r, err := d.Rank(which, uint64(probe))
		if err != nil {
			return 0, err
		}
		switch {
		case r == y:
			val = uint64(probe)
			found = true
			hi = probe
		case r < y:
			lo = probe
		default:
			hi = probe
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: select(%d, %d) has no answer", ErrRange, which, y)
	}
	return val, nil
}
