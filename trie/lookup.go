package trie

import (
	"github.com/rethinkdns/ftrie/codec"
	"github.com/rethinkdns/ftrie/metrics"
)

// Lookup walks the trie along an encoded reversed host and returns every
// enclosing suffix present in the dictionary, mapped to its decoded text
// and ordinal set. The caller must have stripped any delimiter-terminated
// tag prefix; see LookupHost for the plain-text entry point. A host with
// no match returns a nil map and no error.
func (t *FrozenTrie) Lookup(word []byte) (map[string][]uint16, error) {
	metrics.DefaultRegistry.Counter("trie/lookups").Inc()

	var res map[string][]uint16
	add := func(units []byte, n node) error {
		tags, err := t.value(n)
		if err != nil {
			return err
		}
		suffix, err := t.cdc.Decode(codec.Reverse(units))
		if err != nil {
			return err
		}
		if res == nil {
			res = make(map[string][]uint16)
		}
		res[suffix] = tags
		return nil
	}

	cur := t.nodeAt(0)
	cursor := noCursor
	i := 0
	for i < len(word) {
		// A label boundary over a final node marks an enclosing suffix.
		if word[i] == t.cdc.Period() && cur.final() {
			if err := add(word[:i], cur); err != nil {
				return nil, err
			}
		}

		firstChild, count, err := cur.children()
		if err != nil {
			return nil, err
		}
		lo := cur.lastFlagChild(firstChild, count)
		if lo >= int(count)-1 {
			// Only flag children (or none at all): the walk ends here
			// with the word not fully consumed.
			return t.done(res), nil
		}

		// Binary search the letter children between the flag prefix and
		// the end of the child span. Probing resolves the probe's whole
		// radix run, so the bounds move in child-local run coordinates.
		low := lo          // exclusive
		high := int(count) // exclusive
		matched := false
		for high-low > 1 {
			probe := (low + high) / 2
			run, runLoc, cur2, err := t.radix(firstChild, probe, cursor)
			if err != nil {
				return nil, err
			}
			cursor = cur2
			comp := run.word
			switch {
			case comp[0] > word[i]:
				high = runLoc
			case comp[0] < word[i]:
				low = runLoc + len(comp) - 1
			default:
				if len(word)-i < len(comp) {
					// The word ends inside this run: no deeper match.
					return t.done(res), nil
				}
				for k := 1; k < len(comp); k++ {
					if comp[k] != word[i+k] {
						return t.done(res), nil
					}
				}
				cur = t.nodeAt(run.branch)
				i += len(comp)
				matched = true
			}
			if matched {
				break
			}
		}
		if !matched {
			return t.done(res), nil
		}
	}

	if cur.final() {
		if err := add(word, cur); err != nil {
			return nil, err
		}
	}
	return t.done(res), nil
}

// done records the outcome counter and passes the result through.
func (t *FrozenTrie) done(res map[string][]uint16) map[string][]uint16 {
	if res != nil {
		metrics.DefaultRegistry.Counter("trie/lookup/hits").Inc()
	}
	return res
}

// LookupHost reverses and encodes a plain host name and looks it up.
func (t *FrozenTrie) LookupHost(host string) (map[string][]uint16, error) {
	units, err := t.cdc.Encode(codec.ReverseString(host))
	if err != nil {
		return nil, err
	}
	return t.Lookup(units)
}
