package bundle

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/rethinkdns/ftrie/codec"
	"github.com/rethinkdns/ftrie/log"
	"github.com/rethinkdns/ftrie/metrics"
	"github.com/rethinkdns/ftrie/trie"
)

// Aggregator folds many newline-delimited host lists into one host ->
// ordinal-set map and renders it as the lex-sorted encoded insert stream
// the builder requires. List parsing may run list-by-list in any order;
// the sort happens once at the end, so the single-threaded builder sees
// one ordered stream.
type Aggregator struct {
	cfg   trie.Config
	cdc   *codec.Codec
	hosts map[string]*bitset.BitSet
	lg    *log.Logger
}

// NewAggregator returns an empty aggregator for the given build
// configuration.
func NewAggregator(cfg trie.Config) *Aggregator {
	return &Aggregator{
		cfg:   cfg,
		cdc:   codec.For(cfg.UseCodec6),
		hosts: make(map[string]*bitset.BitSet),
		lg:    log.Default().Module("bundle"),
	}
}

// HostCount returns the number of distinct hosts aggregated so far.
func (a *Aggregator) HostCount() int { return len(a.hosts) }

// AddList scans one newline-delimited host list and tags every host with
// the list's ordinal. Blank lines and #-comments are skipped; hosts are
// lowercased and trimmed. Lines that do not fit the codec alphabet are
// dropped with a warning rather than failing the whole list. Returns the
// number of hosts accepted.
func (a *Aggregator) AddList(ordinal int, r io.Reader) (int, error) {
	if ordinal < 0 || ordinal >= codec.MaxTag {
		return 0, fmt.Errorf("bundle: ordinal %d out of range", ordinal)
	}
	accepted := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		host := strings.ToLower(strings.TrimSpace(sc.Text()))
		if host == "" || strings.HasPrefix(host, "#") {
			continue
		}
		if _, err := a.cdc.Encode(host); err != nil {
			a.lg.Warn("host dropped", "host", host, "err", err)
			metrics.DefaultRegistry.Counter("bundle/hosts/dropped").Inc()
			continue
		}
		set, ok := a.hosts[host]
		if !ok {
			set = bitset.New(codec.MaxTag)
			a.hosts[host] = set
		}
		set.Set(uint(ordinal))
		accepted++
	}
	if err := sc.Err(); err != nil {
		return accepted, fmt.Errorf("bundle: scan list %d: %w", ordinal, err)
	}
	metrics.DefaultRegistry.Counter("bundle/hosts/accepted").Add(int64(accepted))
	return accepted, nil
}

// AddFile is AddList over a file on disk.
func (a *Aggregator) AddFile(ordinal int, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("bundle: open list: %w", err)
	}
	defer f.Close()
	return a.AddList(ordinal, f)
}

// SortedInputs renders the aggregated map as encoded insert words, one
// per host/ordinal pair, in ascending bytewise order.
func (a *Aggregator) SortedInputs() ([][]byte, error) {
	var words [][]byte
	for host, set := range a.hosts {
		for o, ok := set.NextSet(0); ok; o, ok = set.NextSet(o + 1) {
			w, err := trie.EncodeInsert(a.cdc, host, int(o))
			if err != nil {
				return nil, err
			}
			words = append(words, w)
		}
	}
	sort.Slice(words, func(i, j int) bool { return bytes.Compare(words[i], words[j]) < 0 })
	return words, nil
}

// Build runs the full pipeline: sort the aggregate, feed the trie
// builder, shard the blobs into dir and write the manifest. The returned
// manifest is what a consumer needs to Mount the directory.
func (a *Aggregator) Build(dir string, shardSize int) (*BasicConfig, error) {
	words, err := a.SortedInputs()
	if err != nil {
		return nil, err
	}
	a.lg.Info("building dictionary", "hosts", len(a.hosts), "inserts", len(words))

	td, rd, nodeCount, err := trie.BuildAll(words, a.cfg)
	if err != nil {
		return nil, err
	}

	parts, err := WriteShards(dir, td, rd, shardSize)
	if err != nil {
		return nil, err
	}

	bc := FromTrieConfig(a.cfg, nodeCount)
	bc.TDParts = parts
	bc.TDMD5 = Digest(td)
	bc.RDMD5 = Digest(rd)
	if err := bc.Save(ConfigPath(dir)); err != nil {
		return nil, err
	}
	return bc, nil
}

// Mount loads the artifacts in dir, verifies the manifest digests and
// opens the frozen trie.
func Mount(dir string) (*trie.FrozenTrie, *BasicConfig, error) {
	bc, err := LoadBasicConfig(ConfigPath(dir))
	if err != nil {
		return nil, nil, err
	}
	td, rd, err := ReadShards(dir, bc.TDParts)
	if err != nil {
		return nil, nil, err
	}
	if err := bc.VerifyDigests(td, rd); err != nil {
		return nil, nil, err
	}
	ft, err := trie.Open(td, rd, bc.TrieConfig())
	if err != nil {
		return nil, nil, err
	}
	return ft, bc, nil
}
