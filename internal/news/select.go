package news

import (
	"sort"
	"strings"
	"unicode"

	"market-watch-bot/internal/types"
)

// Select filters items by keyword, drops duplicate titles and returns up to
// limit items, newest first.
func Select(items []types.Headline, keywords []string, limit int) []types.Headline {
	seen := make(map[string]bool, len(items))
	out := make([]types.Headline, 0, len(items))
	for _, h := range items {
		key := strings.ToLower(strings.TrimSpace(h.Title))
		if seen[key] || !matches(key, keywords) {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// matches reports whether title contains any keyword as a whole word.
func matches(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	words := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	for _, k := range keywords {
		if set[strings.ToLower(k)] {
			return true
		}
	}
	return false
}
