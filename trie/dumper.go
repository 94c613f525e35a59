// dumper.go renders diagnostic summaries of a frozen trie. The dump is
// gated on Config.Inspect and has no effect on lookups or the byte
// layout.
package trie

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
)

// Summary aggregates the node-kind population of a frozen trie.
type Summary struct {
	NodeCount   int
	Plain       int
	Final       int
	Compressed  int
	Flag        int
	LetterWidth int
	LetterStart uint64
	RadixCache  RadixCacheStats
}

// Summarize scans the letter stream and counts entries per node kind.
func (t *FrozenTrie) Summarize() Summary {
	s := Summary{
		NodeCount:   int(t.nodeCount),
		LetterWidth: t.w,
		LetterStart: t.letterStart,
		RadixCache:  t.rcache.stats(),
	}
	for i := uint64(0); i < t.nodeCount; i++ {
		switch t.data.Get(t.nodeAt(i).off(), 2) {
		case hdrPlain:
			s.Plain++
		case hdrFinal:
			s.Final++
		case hdrCompressed:
			s.Compressed++
		case hdrFlag:
			s.Flag++
		}
	}
	return s
}

// Dump writes the configuration and node-kind summary to w. It is a no-op
// unless the trie was opened with Inspect set.
func (t *FrozenTrie) Dump(w io.Writer) error {
	if !t.cfg.Inspect {
		return nil
	}
	if _, err := fmt.Fprintln(w, "frozen trie"); err != nil {
		return err
	}
	spew.Fdump(w, t.cfg, t.Summarize())
	return nil
}
