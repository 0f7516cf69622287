package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// DefaultRunWindow bounds how many manifest entries are consumed.
const DefaultRunWindow = 10

// ManifestEntry is one run reference in the manifest catalog.
type ManifestEntry struct {
	Date      string `json:"date,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	File      string `json:"file"`
	Label     string `json:"label,omitempty"`
	Total     int    `json:"total,omitempty"`
	Passed    int    `json:"passed,omitempty"`
	Failed    int    `json:"failed,omitempty"`
}

// When returns the entry's parsed date (zero time when unparseable).
func (e *ManifestEntry) When() time.Time {
	return ParseDate(firstNonEmpty(e.Date, e.Timestamp))
}

// Manifest parses a manifest payload and returns its entries sorted
// newest-first, truncated to window entries (DefaultRunWindow when
// window <= 0). Entries without a file reference are dropped.
func Manifest(data []byte, window int) ([]ManifestEntry, error) {
	var manifest struct {
		Runs []ManifestEntry `json:"runs"`
	}

	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	entries := make([]ManifestEntry, 0, len(manifest.Runs))
	for _, e := range manifest.Runs {
		if e.File != "" {
			entries = append(entries, e)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].When().After(entries[j].When())
	})

	if window <= 0 {
		window = DefaultRunWindow
	}

	if len(entries) > window {
		entries = entries[:window]
	}

	return entries, nil
}
