package dedupe

import (
	"strings"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
)

// DefaultFormatPriority orders format codes from least to most preferred;
// a later position means a more desirable format.
var DefaultFormatPriority = []string{"DJVU", "AZW3", "MOBI", "PDF", "EPUB"}

// ParseFormatPriority turns a comma-separated priority string into a
// normalized list, or the default when the string is empty.
func ParseFormatPriority(s string) []string {
	if strings.TrimSpace(s) == "" {
		return DefaultFormatPriority
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return DefaultFormatPriority
	}
	return out
}

// Score rates how desirable a record is to keep. Higher is better:
//
//	score = 1000*bestRank + 10*formatCount + recencyDays
//
// bestRank is the highest priority-list index among the record's formats
// (formats not in the list contribute nothing). The weights rank the terms:
// one priority step outweighs any format count, and a format advantage holds
// unless the recency gap exceeds roughly a thousand days. recencyDays is the
// effective timestamp as a day count since the Unix epoch; missing or
// unparsable timestamps add 0.
func Score(r catalog.Record, priority []string) int {
	bestRank := 0
	for _, f := range r.Formats {
		for rank, p := range priority {
			if strings.EqualFold(f, p) && rank > bestRank {
				bestRank = rank
			}
		}
	}

	score := bestRank*1000 + len(r.Formats)*10

	if t, ok := r.EffectiveTime(); ok {
		score += int(t.Unix() / 86400)
	}
	return score
}
