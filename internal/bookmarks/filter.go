package bookmarks

import (
	"strings"

	"github.com/hyperifyio/bookmarkd/internal/store"
)

// Mode selects how multiple filter tags combine.
type Mode string

const (
	// ModeAny keeps bookmarks carrying at least one filter tag.
	ModeAny Mode = "any"
	// ModeAll keeps bookmarks carrying every filter tag.
	ModeAll Mode = "all"
)

// Filter narrows List results. An empty Tags keeps everything.
type Filter struct {
	Tags []string
	Mode Mode
}

// ParseFilter builds a Filter from the single tag parameter, the
// comma-separated tags parameter and the mode parameter.
func ParseFilter(tag, tags, mode string) Filter {
	var raw []string
	if tag != "" {
		raw = append(raw, tag)
	}
	if tags != "" {
		raw = append(raw, strings.Split(tags, ",")...)
	}
	f := Filter{Tags: normalizeTags(raw, true), Mode: ModeAny}
	if strings.EqualFold(strings.TrimSpace(mode), string(ModeAll)) {
		f.Mode = ModeAll
	}
	return f
}

// Match reports whether b passes the filter. Tag comparison ignores case.
func (f Filter) Match(b store.Bookmark) bool {
	if len(f.Tags) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(b.Tags))
	for _, t := range b.Tags {
		have[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	if f.Mode == ModeAll {
		for _, t := range f.Tags {
			if _, ok := have[t]; !ok {
				return false
			}
		}
		return true
	}
	for _, t := range f.Tags {
		if _, ok := have[t]; ok {
			return true
		}
	}
	return false
}

// normalizeTags trims, drops empties and de-duplicates case-insensitively,
// keeping first occurrences. lower also folds the kept values.
func normalizeTags(in []string, lower bool) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if lower {
			t = key
		}
		out = append(out, t)
	}
	return out
}
