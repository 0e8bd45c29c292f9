package cardpool

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// tagSource adapts the registered tags to fuzzy.Source.
type tagSource []string

func (s tagSource) String(i int) string { return s[i] }

func (s tagSource) Len() int { return len(s) }

// SuggestTags returns up to limit registered tags that fuzzily match query, best
// match first. It is used when a lookup by id or tag misses.
func (p *Pool) SuggestTags(query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return nil
	}

	p.mu.RLock()
	keys := make(tagSource, 0, len(p.tags))
	for key := range p.tags {
		keys = append(keys, key)
	}
	display := make(map[string]string, len(p.tags))
	for key, c := range p.tags {
		display[key] = c.Tag()
	}
	p.mu.RUnlock()

	// Stable input order keeps equal scores deterministic.
	sort.Strings(keys)
	matches := fuzzy.FindFrom(query, keys)

	out := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, display[keys[m.Index]])
	}
	return out
}
