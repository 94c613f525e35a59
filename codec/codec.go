// Package codec converts between textual host names and the fixed-width
// code units stored in the trie, and encodes the tag bitmaps that final
// nodes carry. Two alphabets are supported: a 6-bit codec over a restricted
// 64-symbol set, and an 8-bit codec over raw printable ASCII. Both reserve
// two symbols: the tag delimiter, which separates a host from its appended
// ordinal digits, and the label separator (the period).
package codec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBadAlphabet is returned when an input contains a symbol outside
	// the codec's alphabet.
	ErrBadAlphabet = errors.New("codec: symbol outside alphabet")

	// ErrBitmap is returned when a tag bitmap's header popcount disagrees
	// with the number of group words present.
	ErrBitmap = errors.New("codec: bitmap header disagrees with group words")
)

// alphabet6 is the 64-symbol alphabet of the 6-bit codec. The tag delimiter
// sits at code 0 so that an encoded host+delimiter+ordinal sequence sorts
// by host first.
const alphabet6 = "#!%&'()*+,-./0123456789:;<=>?@_abcdefghijklmnopqrstuvwxyz{|}~$^`"

const (
	delimChar  = '#'
	periodChar = '.'
)

// Codec is a bidirectional, per-symbol converter between host text and
// W-bit code units. Codecs are immutable and safe for concurrent use.
type Codec struct {
	w      int
	delim  byte
	period byte
	enc    [128]int16 // ASCII -> code unit, -1 if not in the alphabet
	dec    [256]int16 // code unit -> ASCII, -1 if unassigned
}

// New6 returns the 6-bit codec.
func New6() *Codec {
	c := &Codec{w: 6}
	for i := range c.enc {
		c.enc[i] = -1
	}
	for i := range c.dec {
		c.dec[i] = -1
	}
	for i := 0; i < len(alphabet6); i++ {
		ch := alphabet6[i]
		c.enc[ch] = int16(i)
		c.dec[i] = int16(ch)
	}
	c.delim = byte(c.enc[delimChar])
	c.period = byte(c.enc[periodChar])
	return c
}

// New8 returns the 8-bit codec: code units are the raw ASCII bytes of the
// printable range 0x21..0x7e.
func New8() *Codec {
	c := &Codec{w: 8}
	for i := range c.enc {
		c.enc[i] = -1
	}
	for i := range c.dec {
		c.dec[i] = -1
	}
	for ch := 0x21; ch <= 0x7e; ch++ {
		c.enc[ch] = int16(ch)
		c.dec[ch] = int16(ch)
	}
	c.delim = delimChar
	c.period = periodChar
	return c
}

// For returns the codec selected by the useCodec6 flag.
func For(useCodec6 bool) *Codec {
	if useCodec6 {
		return New6()
	}
	return New8()
}

// W returns the code unit width in bits.
func (c *Codec) W() int { return c.w }

// Delim returns the encoded tag delimiter. It is the smallest code in
// either alphabet's host range, so full encoded inserts sort host-first.
func (c *Codec) Delim() byte { return c.delim }

// Period returns the encoded label separator.
func (c *Codec) Period() byte { return c.period }

// Encode converts a host string to code units, one unit per symbol.
func (c *Codec) Encode(s string) ([]byte, error) {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 128 || c.enc[ch] < 0 {
			return nil, fmt.Errorf("%w: %q at %d in %q", ErrBadAlphabet, ch, i, s)
		}
		out[i] = byte(c.enc[ch])
	}
	return out, nil
}

// Decode converts code units back to the host string.
func (c *Codec) Decode(units []byte) (string, error) {
	var b strings.Builder
	b.Grow(len(units))
	for i, u := range units {
		if c.dec[u] < 0 {
			return "", fmt.Errorf("%w: unit %#x at %d", ErrBadAlphabet, u, i)
		}
		b.WriteByte(byte(c.dec[u]))
	}
	return b.String(), nil
}

// Reverse returns a reversed copy of a unit slice.
func Reverse(units []byte) []byte {
	out := make([]byte, len(units))
	for i, u := range units {
		out[len(units)-1-i] = u
	}
	return out
}

// ReverseString returns the byte-reversed host string. Host names are
// ASCII, so byte reversal is symbol reversal.
func ReverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
