package trie

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_ConfigMismatch(t *testing.T) {
	cfg := DefaultConfig()
	td, rd, n := buildBlobs(t, cfg, map[string][]int{
		"example.com":     {1},
		"www.example.com": {2},
		"tracker.net":     {3},
	})

	// Missing node count.
	if _, err := Open(td, rd, cfg); !errors.Is(err, ErrConfigMismatch) {
		t.Fatalf("nodecount 0: err = %v, want ErrConfigMismatch", err)
	}

	// Inflated node count makes the letter stream run past the blob.
	bad := cfg
	bad.NodeCount = n * 10
	if _, err := Open(td, rd, bad); !errors.Is(err, ErrConfigMismatch) {
		t.Fatalf("inflated nodecount: err = %v, want ErrConfigMismatch", err)
	}

	// Wrong letter width changes the required blob size.
	bad = cfg
	bad.NodeCount = n
	bad.UseCodec6 = !cfg.UseCodec6
	if _, err := Open(td, rd, bad); err == nil {
		// An 8-bit mount of a 6-bit blob may fit by coincidence on tiny
		// inputs, but the default build here is too tight for that.
		t.Fatal("wrong letter width should not mount")
	}

	// Invalid block geometry.
	bad = cfg
	bad.NodeCount = n
	bad.L2 = 48
	if _, err := Open(td, rd, bad); err == nil {
		t.Fatal("l1 % l2 != 0 should not validate")
	}

	// Truncated directory blob.
	bad = cfg
	bad.NodeCount = n
	bad.SelectSearch = false
	if _, err := Open(td, rd[:0], bad); !errors.Is(err, ErrConfigMismatch) {
		t.Fatalf("empty rd: err = %v, want ErrConfigMismatch", err)
	}
}

func TestOpen_OddBlob(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeCount = 4
	if _, err := Open([]byte{1, 2, 3}, nil, cfg); err == nil {
		t.Fatal("odd td blob must not mount")
	}
}

func TestFrozen_ValueCache(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ValueCacheSize = 16
	ft := buildFrozen(t, cfg, map[string][]int{"example.com": {1, 2, 3}})

	for i := 0; i < 3; i++ {
		got, err := ft.LookupHost("example.com")
		require.NoError(t, err)
		require.Equal(t, []uint16{1, 2, 3}, got["example.com"])
	}

	// Disabled cache behaves identically.
	cfg.ValueCacheSize = 0
	ft = buildFrozen(t, cfg, map[string][]int{"example.com": {1, 2, 3}})
	got, err := ft.LookupHost("example.com")
	require.NoError(t, err)
	require.Equal(t, []uint16{1, 2, 3}, got["example.com"])
}

func TestSummarize(t *testing.T) {
	ft := buildFrozen(t, DefaultConfig(), map[string][]int{
		"com":         {1},
		"example.com": {2},
	})
	s := ft.Summarize()
	require.Equal(t, ft.NodeCount(), s.Plain+s.Final+s.Compressed+s.Flag)
	// Two final nodes ("com" and "example.com"), each carrying one
	// inline flag child.
	require.Equal(t, 2, s.Final)
	require.Equal(t, 2, s.Flag)
	require.Equal(t, 6, s.LetterWidth)
}

func TestDump_GatedOnInspect(t *testing.T) {
	ft := buildFrozen(t, DefaultConfig(), map[string][]int{"example.com": {1}})
	var sink nopWriter
	require.NoError(t, ft.Dump(&sink))
	require.Zero(t, sink.n, "dump must be a no-op without Inspect")

	cfg := DefaultConfig()
	cfg.Inspect = true
	ft = buildFrozen(t, cfg, map[string][]int{"example.com": {1}})
	require.NoError(t, ft.Dump(&sink))
	require.NotZero(t, sink.n)
}

type nopWriter struct{ n int }

func (w *nopWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}
