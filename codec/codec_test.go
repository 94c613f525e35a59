package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlphabet6_Shape(t *testing.T) {
	require.Len(t, alphabet6, 64)

	c := New6()
	require.EqualValues(t, 0, c.Delim(), "delimiter must sort below every host symbol")
	require.Equal(t, 6, c.W())

	// Every symbol a host name can contain must be encodable.
	for _, ch := range "abcdefghijklmnopqrstuvwxyz0123456789-._" {
		if c.enc[ch] < 0 {
			t.Fatalf("host symbol %q missing from 6-bit alphabet", ch)
		}
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	hosts := []string{
		"example.com",
		"www.example.co.uk",
		"xn--nxasmq6b.example",
		"a-b_c.d0.e",
	}
	for _, c := range []*Codec{New6(), New8()} {
		for _, h := range hosts {
			units, err := c.Encode(h)
			require.NoError(t, err, "w=%d host=%q", c.W(), h)
			got, err := c.Decode(units)
			require.NoError(t, err)
			require.Equal(t, h, got, "w=%d", c.W())
		}
	}
}

func TestCodec_BadInput(t *testing.T) {
	for _, c := range []*Codec{New6(), New8()} {
		if _, err := c.Encode("exämple.com"); !errors.Is(err, ErrBadAlphabet) {
			t.Fatalf("w=%d: err = %v, want ErrBadAlphabet", c.W(), err)
		}
	}
	c := New6()
	if _, err := c.Decode([]byte{64}); !errors.Is(err, ErrBadAlphabet) {
		t.Fatalf("decode of out-of-range unit: err = %v, want ErrBadAlphabet", err)
	}
}

func TestCodec_PeriodAndDelim(t *testing.T) {
	for _, c := range []*Codec{New6(), New8()} {
		units, err := c.Encode("a.b")
		require.NoError(t, err)
		require.Equal(t, c.Period(), units[1])
		require.NotEqual(t, c.Delim(), units[0])
		require.NotEqual(t, c.Delim(), units[2])

		// The delimiter sorts below every encodable host symbol.
		for _, ch := range "abcdefghijklmnopqrstuvwxyz0123456789-._" {
			u, err := c.Encode(string(ch))
			require.NoError(t, err)
			if u[0] <= c.Delim() {
				t.Fatalf("w=%d: symbol %q encodes to %d, not above delimiter %d",
					c.W(), ch, u[0], c.Delim())
			}
		}
	}
}

func TestReverse(t *testing.T) {
	require.Equal(t, []byte{3, 2, 1}, Reverse([]byte{1, 2, 3}))
	require.Equal(t, "moc.elpmaxe", ReverseString("example.com"))
	require.Equal(t, "", ReverseString(""))
}
