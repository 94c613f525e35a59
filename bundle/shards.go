package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rethinkdns/ftrie/log"
)

// DefaultShardSize is the target size of one trie blob shard. The trie
// blob is the only artifact large enough to split; the rank directory
// ships as a single file.
const DefaultShardSize = 30 << 20

// rdName is the rank directory filename.
const rdName = "rd.txt"

// shardName returns the trie shard filename for a zero-based index.
func shardName(i int) string { return fmt.Sprintf("td%02d.txt", i) }

// WriteShards writes the trie blob as fixed-size shards plus the rank
// directory blob into dir, and returns the zero-based index of the last
// shard written. Shards carry no framing; loading concatenates them
// byte-for-byte.
func WriteShards(dir string, td, rd []byte, shardSize int) (parts int, err error) {
	if shardSize <= 0 {
		shardSize = DefaultShardSize
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("bundle: create artifact dir: %w", err)
	}

	lg := log.Default().Module("bundle")
	i := 0
	for off := 0; ; i++ {
		end := off + shardSize
		if end > len(td) {
			end = len(td)
		}
		path := filepath.Join(dir, shardName(i))
		if err := os.WriteFile(path, td[off:end], 0644); err != nil {
			return 0, fmt.Errorf("bundle: write shard %d: %w", i, err)
		}
		lg.Debug("shard written", "path", path, "bytes", end-off)
		off = end
		if off >= len(td) {
			break
		}
	}

	if err := os.WriteFile(filepath.Join(dir, rdName), rd, 0644); err != nil {
		return 0, fmt.Errorf("bundle: write rank directory: %w", err)
	}
	lg.Info("artifacts written", "dir", dir, "td_bytes", len(td), "rd_bytes", len(rd), "tdparts", i)
	return i, nil
}

// ReadShards loads the trie blob by concatenating shards 0..parts and the
// rank directory blob from dir.
func ReadShards(dir string, parts int) (td, rd []byte, err error) {
	for i := 0; i <= parts; i++ {
		chunk, err := os.ReadFile(filepath.Join(dir, shardName(i)))
		if err != nil {
			return nil, nil, fmt.Errorf("bundle: read shard %d: %w", i, err)
		}
		td = append(td, chunk...)
	}
	rd, err = os.ReadFile(filepath.Join(dir, rdName))
	if err != nil {
		return nil, nil, fmt.Errorf("bundle: read rank directory: %w", err)
	}
	return td, rd, nil
}
