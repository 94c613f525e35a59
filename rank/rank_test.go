package rank

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"

	"github.com/rethinkdns/ftrie/bitio"
)

// randomStream writes nbits random bits and returns the reader plus a
// bitset oracle holding the same bits.
func randomStream(t *testing.T, rng *rand.Rand, nbits uint64) (*bitio.Reader, *bitset.BitSet) {
	t.Helper()
	w := bitio.NewWriter()
	oracle := bitset.New(uint(nbits))
	for i := uint64(0); i < nbits; i++ {
		b := uint32(rng.Intn(2))
		w.Write(b, 1)
		if b == 1 {
			oracle.Set(uint(i))
		}
	}
	return w.Reader(), oracle
}

func TestRank_PopcountLayout(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	nbits := uint64(8192)
	data, oracle := randomStream(t, rng, nbits)

	d, blob, err := Build(data, nbits, DefaultL1, DefaultL2, false)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	var ones uint64
	for x := uint64(0); x < nbits; x++ {
		if oracle.Test(uint(x)) {
			ones++
		}
		r1, err := d.Rank(1, x)
		require.NoError(t, err)
		if r1 != ones {
			t.Fatalf("rank(1,%d) = %d, want %d", x, r1, ones)
		}
		r0, err := d.Rank(0, x)
		require.NoError(t, err)
		// rank(0,x) + rank(1,x) == x + 1 at every position.
		if r0+r1 != x+1 {
			t.Fatalf("rank(0,%d)+rank(1,%d) = %d, want %d", x, x, r0+r1, x+1)
		}
	}
}

func TestSelect_PopcountLayout(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	nbits := uint64(4096)
	data, _ := randomStream(t, rng, nbits)

	d, _, err := Build(data, nbits, 256, 32, false)
	require.NoError(t, err)

	onesTotal, err := d.Rank(1, nbits-1)
	require.NoError(t, err)

	for y := uint64(1); y <= onesTotal; y++ {
		x, err := d.Select(1, y)
		require.NoError(t, err)
		// rank(1, select(1,y)) == y, and select returns the smallest
		// such position: the bit there must be a one.
		r, err := d.Rank(1, x)
		require.NoError(t, err)
		if r != y {
			t.Fatalf("rank(1, select(1,%d)=%d) = %d", y, x, r)
		}
		if data.Get(x, 1) != 1 {
			t.Fatalf("select(1,%d) = %d lands on a zero", y, x)
		}
	}
}

func TestSelect0_LayoutsAgree(t *testing.T) {
	// Both layouts must produce identical select(0, y) answers over a
	// random 64 Kib stream with the default block sizes. The stream is
	// pinned to start with "10" like a real child-count stream, since the
	// select-as-rank layout relies on bit 0 being a one.
	rng := rand.New(rand.NewSource(3))
	nbits := uint64(64 * 1024)
	w := bitio.NewWriter()
	w.Write(0b10, 2)
	for i := uint64(2); i < nbits; i++ {
		w.Write(uint32(rng.Intn(2)), 1)
	}
	data := w.Reader()

	pop, _, err := Build(data, nbits, DefaultL1, DefaultL2, false)
	require.NoError(t, err)
	sel, blob, err := Build(data, nbits, DefaultL1, DefaultL2, true)
	require.NoError(t, err)

	zeros, err := pop.Rank(0, nbits-1)
	require.NoError(t, err)

	for y := uint64(1); y <= zeros; y++ {
		want, err := pop.Select0(y)
		require.NoError(t, err)
		got, err := sel.Select0(y)
		require.NoError(t, err)
		if got != want {
			t.Fatalf("select0(%d): select-as-rank %d, popcount %d", y, got, want)
		}
	}

	// Remounting the serialized blob answers identically.
	mounted, err := New(blob, data, nbits, DefaultL1, DefaultL2, true)
	require.NoError(t, err)
	for _, y := range []uint64{1, 2, zeros / 2, zeros} {
		want, err := sel.Select0(y)
		require.NoError(t, err)
		got, err := mounted.Select0(y)
		require.NoError(t, err)
		require.Equal(t, want, got, "y=%d", y)
	}
}

func TestRank_SelectSearchLayout(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	nbits := uint64(4096)
	w := bitio.NewWriter()
	w.Write(0b10, 2)
	for i := uint64(2); i < nbits; i++ {
		w.Write(uint32(rng.Intn(2)), 1)
	}
	data := w.Reader()

	pop, _, err := Build(data, nbits, 256, 32, false)
	require.NoError(t, err)
	sel, _, err := Build(data, nbits, 256, 32, true)
	require.NoError(t, err)

	for x := uint64(0); x < nbits; x += 7 {
		want, err := pop.Rank(0, x)
		require.NoError(t, err)
		got, err := sel.Rank(0, x)
		require.NoError(t, err)
		if got != want {
			t.Fatalf("rank(0,%d): select-as-rank %d, popcount %d", x, got, want)
		}
	}
}

func TestSelect1_UnsupportedUnderSelectSearch(t *testing.T) {
	w := bitio.NewWriter()
	w.Write(0b10, 2)
	w.Write(0b1010, 4)
	data := w.Reader()

	d, _, err := Build(data, 6, 64, 32, true)
	require.NoError(t, err)
	if _, err := d.Select(1, 1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("select(1,·) err = %v, want ErrUnsupported", err)
	}
}

func TestBuild_BadGeometry(t *testing.T) {
	w := bitio.NewWriter()
	w.Write(1, 1)
	data := w.Reader()

	if _, _, err := Build(data, 1, 100, 32, false); !errors.Is(err, ErrBlockSize) {
		t.Fatalf("l1 %% l2 != 0: err = %v, want ErrBlockSize", err)
	}
	if _, _, err := Build(data, 1, 0, 0, false); !errors.Is(err, ErrBlockSize) {
		t.Fatalf("zero blocks: err = %v, want ErrBlockSize", err)
	}
}
