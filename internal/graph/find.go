package graph

import (
	"context"
	"sort"
	"strings"
)

// Filter selects folder children by kind, name substring, and extension
// set. The zero value matches every file.
type Filter struct {
	// Folders selects folder entries instead of files.
	Folders bool

	// NameContains is a case-insensitive substring filter on the name.
	// Items with no name have an empty name and are excluded by any
	// non-empty filter.
	NameContains string

	// Extensions is a case-insensitive suffix set, applied to files only.
	Extensions []string
}

func (f Filter) matches(it *Item) bool {
	if f.Folders == it.IsFile {
		return false
	}

	if f.NameContains != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.NameContains)) {
		return false
	}

	if len(f.Extensions) > 0 && it.IsFile {
		name := strings.ToLower(it.Name)

		matched := false
		for _, ext := range f.Extensions {
			if strings.HasSuffix(name, strings.ToLower(ext)) {
				matched = true
				break
			}
		}

		if !matched {
			return false
		}
	}

	return true
}

// FindInFolder lists a folder's immediate children and keeps those passing
// the filter. A non-existent or inaccessible folder propagates as a
// RemoteError; filtering itself never fails, an empty result just means no
// matches.
func (c *Client) FindInFolder(ctx context.Context, folderPath string, filter Filter) ([]Item, error) {
	items, err := c.ListChildren(ctx, folderPath)
	if err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(items))
	for i := range items {
		if filter.matches(&items[i]) {
			out = append(out, items[i])
		}
	}

	return out, nil
}

// MostRecent returns the item with the greatest last-modified timestamp,
// or nil for an empty slice so callers can distinguish "no results" from
// an error. RFC3339 strings sort lexicographically in chronological order.
func MostRecent(items []Item) *Item {
	if len(items) == 0 {
		return nil
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastModified > sorted[j].LastModified
	})

	return &sorted[0]
}
