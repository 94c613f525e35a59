package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ListInfo describes one blocklist in the filetag catalog.
type ListInfo struct {
	// Value is the ordinal stored in the trie's tag bitmaps.
	Value int `json:"value"`

	// UName is the stable unique name; VName the display name.
	UName string `json:"uname"`
	VName string `json:"vname,omitempty"`

	Group    string `json:"group,omitempty"`
	SubGroup string `json:"subg,omitempty"`
	URL      string `json:"url,omitempty"`

	// Entries is the number of hosts the list contributed.
	Entries int `json:"entries,omitempty"`
}

// FileTag is the blocklist catalog keyed by unique list name.
type FileTag map[string]ListInfo

// LoadFileTag reads and decodes a filetag.json catalog.
func LoadFileTag(path string) (FileTag, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: read filetag: %w", err)
	}
	var ft FileTag
	if err := json.Unmarshal(raw, &ft); err != nil {
		return nil, fmt.Errorf("bundle: decode filetag: %w", err)
	}
	return ft, nil
}

// Save writes the catalog as indented JSON.
func (ft FileTag) Save(path string) error {
	raw, err := json.MarshalIndent(ft, "", "  ")
	if err != nil {
		return fmt.Errorf("bundle: encode filetag: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0644); err != nil {
		return fmt.Errorf("bundle: write filetag: %w", err)
	}
	return nil
}

// ByValue returns the list with the given ordinal, if any.
func (ft FileTag) ByValue(v int) (ListInfo, bool) {
	for _, info := range ft {
		if info.Value == v {
			return info, true
		}
	}
	return ListInfo{}, false
}

// Names resolves a set of ordinals to sorted unique list names. Unknown
// ordinals render as '#' followed by their numeric value.
func (ft FileTag) Names(ordinals []uint16) []string {
	names := make([]string, 0, len(ordinals))
	byValue := make(map[int]string, len(ft))
	for name, info := range ft {
		byValue[info.Value] = name
	}
	for _, o := range ordinals {
		if name, ok := byValue[int(o)]; ok {
			names = append(names, name)
		} else {
			names = append(names, fmt.Sprintf("#%d", o))
		}
	}
	sort.Strings(names)
	return names
}
