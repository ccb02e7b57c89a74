package history

import (
	"sort"
	"strings"
)

// upsertEntry replaces the entry with the same id in place, or appends
func upsertEntry(index []IndexEntry, entry IndexEntry) []IndexEntry {
	for i := range index {
		if index[i].ID == entry.ID {
			index[i] = entry
			return index
		}
	}
	return append(index, entry)
}

// removeEntry drops the entry for id and reports whether one was present
func removeEntry(index []IndexEntry, id string) ([]IndexEntry, bool) {
	for i := range index {
		if index[i].ID == id {
			return append(index[:i], index[i+1:]...), true
		}
	}
	return index, false
}

// searchIndex matches query case-insensitively against summaries, newest
// first.
func searchIndex(index []IndexEntry, query string) SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	var matches []IndexEntry
	for _, entry := range index {
		if strings.Contains(strings.ToLower(entry.Summary), q) {
			matches = append(matches, entry)
		}
	}
	if len(matches) == 0 {
		return SearchResult{Query: query, Status: SearchNoMatches}
	}
	sortNewestFirst(matches)
	return SearchResult{Query: query, Status: SearchMatched, Entries: matches}
}

func sortNewestFirst(entries []IndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastUpdated.After(entries[j].LastUpdated)
	})
}
