// Package bundle is the artifact layer around the dictionary core: it
// aggregates newline-delimited host lists into the sorted insert stream,
// splits the frozen trie blob into fixed-size shards, and reads and
// writes the basicconfig.json manifest and the filetag.json blocklist
// catalog that accompany the blobs.
package bundle

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rethinkdns/ftrie/trie"
)

var (
	// ErrDigest is returned when a blob's MD5 digest disagrees with the
	// manifest.
	ErrDigest = errors.New("bundle: blob digest mismatch")
)

// BasicConfig is the on-disk manifest of one dictionary build. It carries
// everything a consumer needs to mount the blobs: the node count, the
// layout flags, the shard count of the trie blob, and per-blob digests.
type BasicConfig struct {
	Version   int    `json:"version"`
	NodeCount int    `json:"nodecount"`
	TDParts   int    `json:"tdparts"` // zero-based: highest shard index
	TDMD5     string `json:"tdmd5"`
	RDMD5     string `json:"rdmd5"`
	FTMD5     string `json:"ftmd5,omitempty"`

	UseCodec6    bool `json:"useCodec6"`
	SelectSearch bool `json:"selectsearch"`
	OptFlags     bool `json:"optflags"`
	Inspect      bool `json:"inspect"`
	Debug        bool `json:"debug"`

	L1 int `json:"l1,omitempty"`
	L2 int `json:"l2,omitempty"`
}

// FromTrieConfig derives a manifest skeleton from a build configuration.
// Digests and shard counts are filled in by Aggregator.Build.
func FromTrieConfig(cfg trie.Config, nodeCount int) *BasicConfig {
	return &BasicConfig{
		Version:      cfg.Version,
		NodeCount:    nodeCount,
		UseCodec6:    cfg.UseCodec6,
		SelectSearch: cfg.SelectSearch,
		OptFlags:     cfg.OptFlags,
		Inspect:      cfg.Inspect,
		Debug:        cfg.Debug,
		L1:           cfg.L1,
		L2:           cfg.L2,
	}
}

// TrieConfig converts the manifest back to the reader configuration.
func (bc *BasicConfig) TrieConfig() trie.Config {
	cfg := trie.DefaultConfig()
	cfg.Version = bc.Version
	cfg.NodeCount = bc.NodeCount
	cfg.UseCodec6 = bc.UseCodec6
	cfg.SelectSearch = bc.SelectSearch
	cfg.OptFlags = bc.OptFlags
	cfg.Inspect = bc.Inspect
	cfg.Debug = bc.Debug
	if bc.L1 > 0 {
		cfg.L1 = bc.L1
	}
	if bc.L2 > 0 {
		cfg.L2 = bc.L2
	}
	return cfg
}

// LoadBasicConfig reads and decodes a basicconfig.json file.
func LoadBasicConfig(path string) (*BasicConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: read manifest: %w", err)
	}
	var bc BasicConfig
	if err := json.Unmarshal(raw, &bc); err != nil {
		return nil, fmt.Errorf("bundle: decode manifest: %w", err)
	}
	return &bc, nil
}

// Save writes the manifest as indented JSON.
func (bc *BasicConfig) Save(path string) error {
	raw, err := json.MarshalIndent(bc, "", "  ")
	if err != nil {
		return fmt.Errorf("bundle: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0644); err != nil {
		return fmt.Errorf("bundle: write manifest: %w", err)
	}
	return nil
}

// Digest returns the lowercase hex MD5 of a blob, the digest format the
// manifest records.
func Digest(blob []byte) string {
	sum := md5.Sum(blob)
	return hex.EncodeToString(sum[:])
}

// VerifyDigests checks the mounted blobs against the manifest digests.
func (bc *BasicConfig) VerifyDigests(td, rd []byte) error {
	if got := Digest(td); bc.TDMD5 != "" && got != bc.TDMD5 {
		return fmt.Errorf("%w: td %s != %s", ErrDigest, got, bc.TDMD5)
	}
	if got := Digest(rd); bc.RDMD5 != "" && got != bc.RDMD5 {
		return fmt.Errorf("%w: rd %s != %s", ErrDigest, got, bc.RDMD5)
	}
	return nil
}

// basicConfigName is the manifest filename inside an artifact directory.
const basicConfigName = "basicconfig.json"

// ConfigPath returns the manifest path inside dir.
func ConfigPath(dir string) string { return filepath.Join(dir, basicConfigName) }
