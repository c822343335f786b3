package model

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// SortField defines what to sort by.
type SortField int

const (
	SortByDiscovery SortField = iota
	SortBySize
	SortByName
	SortByExtension
	SortByMtime
)

// ParseSortField maps a flag value to a SortField.
func ParseSortField(s string) (SortField, bool) {
	switch strings.ToLower(s) {
	case "", "discovery", "bfs":
		return SortByDiscovery, true
	case "size":
		return SortBySize, true
	case "name":
		return SortByName, true
	case "ext", "extension":
		return SortByExtension, true
	case "mtime", "modified":
		return SortByMtime, true
	}
	return SortByDiscovery, false
}

// SortOrder defines ascending or descending.
type SortOrder int

const (
	SortDesc SortOrder = iota
	SortAsc
)

// SortConfig holds sort preferences.
type SortConfig struct {
	Field SortField
	Order SortOrder
}

// DefaultSort keeps records in the order they were discovered.
func DefaultSort() SortConfig {
	return SortConfig{Field: SortByDiscovery, Order: SortAsc}
}

// SortRecords sorts records in place according to cfg.
func SortRecords(records []FileRecord, cfg SortConfig) {
	if cfg.Field == SortByDiscovery {
		if cfg.Order == SortDesc {
			for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
				records[i], records[j] = records[j], records[i]
			}
		}
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]

		// Swapping for descending order keeps strict weak ordering.
		if cfg.Order == SortDesc {
			a, b = b, a
		}

		switch cfg.Field {
		case SortBySize:
			return a.SizeBytes < b.SizeBytes
		case SortByName:
			return natural.Less(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByExtension:
			if a.Extension != b.Extension {
				return natural.Less(a.Extension, b.Extension)
			}
			return natural.Less(a.Name, b.Name)
		case SortByMtime:
			// The timestamp layout sorts lexically; sentinels sort first.
			return a.LastModifyTime < b.LastModifyTime
		}
		return false
	})
}
