package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rethinkdns/ftrie/trie"
)

func TestAggregator_EndToEnd(t *testing.T) {
	cfg := trie.DefaultConfig()
	a := NewAggregator(cfg)

	n, err := a.AddList(3, strings.NewReader("ads.example.com\ntracker.net\n# comment\n\nADS.example.com\n"))
	require.NoError(t, err)
	require.Equal(t, 3, n) // the uppercase duplicate still counts as a line

	n, err = a.AddList(7, strings.NewReader("tracker.net\nmalware.example\n"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 3, a.HostCount())

	dir := t.TempDir()
	// A tiny shard size forces a multi-shard trie blob.
	bc, err := a.Build(dir, 16)
	require.NoError(t, err)
	require.Positive(t, bc.NodeCount)
	require.Positive(t, bc.TDParts, "16-byte shards must split the blob")
	require.NotEmpty(t, bc.TDMD5)
	require.NotEmpty(t, bc.RDMD5)

	ft, mounted, err := Mount(dir)
	require.NoError(t, err)
	require.Equal(t, bc.NodeCount, mounted.NodeCount)

	got, err := ft.LookupHost("tracker.net")
	require.NoError(t, err)
	require.Equal(t, []uint16{3, 7}, got["tracker.net"])

	got, err = ft.LookupHost("sub.ads.example.com")
	require.NoError(t, err)
	require.Equal(t, []uint16{3}, got["ads.example.com"])

	got, err = ft.LookupHost("benign.example")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAggregator_DropsBadHosts(t *testing.T) {
	a := NewAggregator(trie.DefaultConfig())
	n, err := a.AddList(1, strings.NewReader("good.example\nbad höst.example\n"))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, a.HostCount())
}

func TestAggregator_OrdinalRange(t *testing.T) {
	a := NewAggregator(trie.DefaultConfig())
	if _, err := a.AddList(256, strings.NewReader("x.example\n")); err == nil {
		t.Fatal("ordinal 256 must be rejected")
	}
}

func TestMount_DigestMismatch(t *testing.T) {
	a := NewAggregator(trie.DefaultConfig())
	_, err := a.AddList(1, strings.NewReader("example.com\n"))
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = a.Build(dir, 0)
	require.NoError(t, err)

	// Corrupt the first shard.
	shard := filepath.Join(dir, "td00.txt")
	raw, err := os.ReadFile(shard)
	require.NoError(t, err)
	raw[0] ^= 0xff
	require.NoError(t, os.WriteFile(shard, raw, 0644))

	if _, _, err := Mount(dir); !errors.Is(err, ErrDigest) {
		t.Fatalf("err = %v, want ErrDigest", err)
	}
}

func TestShards_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	td := make([]byte, 100)
	for i := range td {
		td[i] = byte(i)
	}
	rd := []byte{9, 8, 7}

	parts, err := WriteShards(dir, td, rd, 32)
	require.NoError(t, err)
	require.Equal(t, 3, parts) // 32+32+32+4 bytes

	gotTD, gotRD, err := ReadShards(dir, parts)
	require.NoError(t, err)
	require.Equal(t, td, gotTD)
	require.Equal(t, rd, gotRD)
}

func TestBasicConfig_RoundTrip(t *testing.T) {
	cfg := trie.DefaultConfig()
	cfg.Debug = true
	bc := FromTrieConfig(cfg, 1234)
	bc.TDParts = 2
	bc.TDMD5 = "aa"
	bc.RDMD5 = "bb"

	path := filepath.Join(t.TempDir(), "basicconfig.json")
	require.NoError(t, bc.Save(path))

	got, err := LoadBasicConfig(path)
	require.NoError(t, err)
	require.Equal(t, bc, got)

	back := got.TrieConfig()
	require.Equal(t, 1234, back.NodeCount)
	require.Equal(t, cfg.UseCodec6, back.UseCodec6)
	require.Equal(t, cfg.SelectSearch, back.SelectSearch)
	require.Equal(t, cfg.L1, back.L1)
	require.True(t, back.Debug)
}

func TestFileTag(t *testing.T) {
	ft := FileTag{
		"OAD": {Value: 3, UName: "OAD", Group: "ads", Entries: 10},
		"MTR": {Value: 7, UName: "MTR", Group: "privacy"},
	}
	path := filepath.Join(t.TempDir(), "filetag.json")
	require.NoError(t, ft.Save(path))

	got, err := LoadFileTag(path)
	require.NoError(t, err)
	require.Equal(t, ft, got)

	info, ok := got.ByValue(7)
	require.True(t, ok)
	require.Equal(t, "MTR", info.UName)
	_, ok = got.ByValue(9)
	require.False(t, ok)

	require.Equal(t, []string{"#9", "MTR", "OAD"}, got.Names([]uint16{7, 3, 9}))
}
