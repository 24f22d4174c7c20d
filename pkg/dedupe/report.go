package dedupe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
)

// Format renders the findings as a markdown report: one titled section per
// strategy, groups listed under their shared key, one line per record.
// Purely presentational; section and group ordering is deterministic.
func (res *Results) Format() string {
	var out []string

	if len(res.Exact) > 0 {
		out = append(out, "## Exact Title/Author Matches")
		for _, key := range sortedKeys(res.Exact) {
			books := res.Exact[key]
			title, authors := splitExactKey(key)
			out = append(out, fmt.Sprintf("\n### %s by %s", title, authors))
			for _, b := range books {
				out = append(out, fmt.Sprintf("- ID: %d | Format: %s | Added: %s",
					b.ID, strings.Join(b.Formats, ", "), b.Timestamp))
			}
		}
	}

	if len(res.SimilarTitles) > 0 {
		out = append(out, "\n## Similar Titles by Same Author")
		for i, group := range res.SimilarTitles {
			out = append(out, fmt.Sprintf("\n### Group %d", i+1))
			for _, b := range group {
				out = append(out, fmt.Sprintf("- ID: %d | %s by %s", b.ID, b.Title, b.Authors))
			}
		}
	}

	if len(res.ByIdentifier) > 0 {
		out = append(out, "\n## ISBN Duplicates")
		for _, isbn := range sortedKeys(res.ByIdentifier) {
			out = append(out, fmt.Sprintf("\n### ISBN: %s", isbn))
			for _, b := range res.ByIdentifier[isbn] {
				out = append(out, fmt.Sprintf("- ID: %d | %s by %s", b.ID, b.Title, b.Authors))
			}
		}
	}

	return strings.Join(out, "\n")
}

// splitExactKey recovers the title and author parts of an exact-group key for
// display. The key was built with fieldKey, so parts separated by the double
// unit separator are field values, and single separators join author names.
func splitExactKey(key string) (title, authors string) {
	parts := strings.Split(key, keySep+keySep)
	title = parts[0]
	if title == "" {
		title = "(no title)"
	}
	if len(parts) > 1 {
		authors = strings.Join(strings.Split(parts[1], keySep), ", ")
	}
	if authors == "" {
		authors = "(no author)"
	}
	return title, authors
}

func sortedKeys(m map[string][]catalog.Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
