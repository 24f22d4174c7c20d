package dedupe

import (
	"strings"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
)

// DefaultThreshold is the minimum title similarity for the fuzzy grouper.
const DefaultThreshold = 0.85

// DefaultExactFields are the fields the exact grouper keys on.
var DefaultExactFields = []string{"title", "authors"}

// keySep joins normalized field parts into a single map key. A unit separator
// cannot survive Normalize, so parts can never collide across fields.
const keySep = "\x1f"

// fieldKey returns the normalized key part for one named field of a record.
// Multi-valued fields are normalized element-wise and sorted first.
func fieldKey(r catalog.Record, field string) string {
	switch field {
	case "title":
		return Normalize(r.Title)
	case "authors":
		return strings.Join(normalizeAll(r.Authors), keySep)
	case "isbn":
		return Normalize(r.ISBN)
	default:
		return ""
	}
}

// GroupExact partitions records into groups whose normalized key tuple over
// the given fields is identical. Only groups with at least two members are
// returned; within a group records keep their input order, but membership
// does not depend on it.
func GroupExact(records []catalog.Record, fields []string) map[string][]catalog.Record {
	if len(fields) == 0 {
		fields = DefaultExactFields
	}

	groups := make(map[string][]catalog.Record)
	for _, r := range records {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = fieldKey(r, f)
		}
		key := strings.Join(parts, keySep+keySep)
		groups[key] = append(groups[key], r)
	}

	for key, members := range groups {
		if len(members) < 2 {
			delete(groups, key)
		}
	}
	return groups
}

// GroupSimilarTitles finds groups of records by the same author whose
// normalized titles are similar above the threshold. Pairwise comparison is
// quadratic, so records are bucketed by normalized author set first; that
// keeps it tractable for thousands of records and avoids false positives
// across unrelated authors.
//
// One group is emitted per anchor record that accumulated at least one match,
// so near-cliques of titles produce overlapping groups. That duplication is a
// known characteristic of the report, not a bug to reconcile here.
func GroupSimilarTitles(records []catalog.Record, threshold float64) [][]catalog.Record {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	buckets := make(map[string][]catalog.Record)
	var order []string
	for _, r := range records {
		key := strings.Join(normalizeAll(r.Authors), keySep)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], r)
	}

	var groups [][]catalog.Record
	for _, key := range order {
		bucket := buckets[key]
		if len(bucket) < 2 {
			continue
		}

		titles := make([]string, len(bucket))
		for i, r := range bucket {
			titles[i] = Normalize(r.Title)
		}

		for i := range bucket {
			if titles[i] == "" {
				continue
			}
			group := []catalog.Record{bucket[i]}
			for j := range bucket {
				if i == j || titles[j] == "" {
					continue
				}
				if Ratio(titles[i], titles[j]) >= threshold {
					group = append(group, bucket[j])
				}
			}
			if len(group) > 1 {
				groups = append(groups, group)
			}
		}
	}
	return groups
}

// GroupByIdentifier buckets records by shared identifier value. A record
// qualifies through its direct ISBN field and through any identifiers entry
// whose scheme name contains "isbn". A record reachable through both paths is
// counted once per bucket. Only buckets with at least two distinct records
// are returned.
func GroupByIdentifier(records []catalog.Record) map[string][]catalog.Record {
	buckets := make(map[string][]catalog.Record)
	seen := make(map[string]map[int]bool)

	add := func(value string, r catalog.Record) {
		if value == "" {
			return
		}
		if seen[value] == nil {
			seen[value] = make(map[int]bool)
		}
		if seen[value][r.ID] {
			return
		}
		seen[value][r.ID] = true
		buckets[value] = append(buckets[value], r)
	}

	for _, r := range records {
		add(r.ISBN, r)
		for scheme, value := range r.Identifiers {
			if strings.Contains(strings.ToLower(scheme), "isbn") {
				add(value, r)
			}
		}
	}

	for value, members := range buckets {
		if len(members) < 2 {
			delete(buckets, value)
		}
	}
	return buckets
}

// Results holds the output of all three grouping strategies side by side.
// Strategies are never merged against each other: the same record pair can
// legitimately show up under more than one category, and downstream reporting
// relies on the strategy tag.
type Results struct {
	Exact         map[string][]catalog.Record `json:"exact_matches"`
	SimilarTitles [][]catalog.Record          `json:"similar_titles"`
	ByIdentifier  map[string][]catalog.Record `json:"isbn_duplicates"`
}

// FindAll runs the three groupers over the same record snapshot.
func FindAll(records []catalog.Record) *Results {
	return &Results{
		Exact:         GroupExact(records, DefaultExactFields),
		SimilarTitles: GroupSimilarTitles(records, DefaultThreshold),
		ByIdentifier:  GroupByIdentifier(records),
	}
}

// TotalDuplicates counts the records that would be redundant if every group
// kept exactly one member (group size minus one, summed over all groups).
func (res *Results) TotalDuplicates() int {
	total := 0
	for _, g := range res.Exact {
		total += len(g) - 1
	}
	for _, g := range res.SimilarTitles {
		total += len(g) - 1
	}
	for _, g := range res.ByIdentifier {
		total += len(g) - 1
	}
	return total
}

// GroupCount returns the number of groups across all strategies.
func (res *Results) GroupCount() int {
	return len(res.Exact) + len(res.SimilarTitles) + len(res.ByIdentifier)
}

// Groups returns every group from every strategy as a flat list, exact
// matches first, then similar titles, then identifier buckets. Map-backed
// strategies are emitted in sorted key order so the result is deterministic.
func (res *Results) Groups() [][]catalog.Record {
	var out [][]catalog.Record
	for _, key := range sortedKeys(res.Exact) {
		out = append(out, res.Exact[key])
	}
	out = append(out, res.SimilarTitles...)
	for _, key := range sortedKeys(res.ByIdentifier) {
		out = append(out, res.ByIdentifier[key])
	}
	return out
}
