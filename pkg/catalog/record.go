// Package catalog models Calibre library records and provides the two record
// sources (calibredb CLI, direct SQLite) the janitor reads from.
package catalog

import (
	"encoding/json"
	"strings"
	"time"
)

// Record is one entry in the Calibre library. Fields mirror the JSON emitted
// by `calibredb list --for-machine`; the SQL source produces the same shape.
type Record struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Authors      AuthorList  `json:"authors"`
	Identifiers  Identifiers `json:"identifiers,omitempty"`
	ISBN         string      `json:"isbn,omitempty"`
	Formats      []string    `json:"formats,omitempty"`
	Timestamp    string      `json:"timestamp,omitempty"`
	LastModified string      `json:"last_modified,omitempty"`
	Comments     string      `json:"comments,omitempty"`
}

// AuthorList is an ordered list of author names. Calibre sometimes encodes
// authors as a single " & "-joined string and sometimes as a JSON array; both
// are resolved here, at the ingestion boundary, so nothing downstream has to
// branch on the shape.
type AuthorList []string

func (a *AuthorList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = nil
		return nil
	}
	parts := strings.Split(s, " & ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	*a = parts
	return nil
}

// String joins the authors for display.
func (a AuthorList) String() string {
	return strings.Join(a, ", ")
}

// Identifiers maps identifier scheme names (isbn, amazon, goodreads, ...) to
// values. calibredb emits a JSON object; older exports emit a
// "scheme:value,scheme:value" string.
type Identifiers map[string]string

func (ids *Identifiers) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err == nil {
		*ids = m
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*ids = nil
		return nil
	}
	m = make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		scheme, value, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || scheme == "" || value == "" {
			continue
		}
		m[strings.TrimSpace(scheme)] = strings.TrimSpace(value)
	}
	*ids = m
	return nil
}

// timeLayouts covers the timestamp shapes Calibre writes: RFC 3339 with and
// without sub-second precision, and the SQLite "2006-01-02 15:04:05" form.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// EffectiveTime returns the record's last-modified time, falling back to the
// creation timestamp. The second return is false when neither parses; callers
// treat that as "no recency information", never as an error.
func (r Record) EffectiveTime() (time.Time, bool) {
	for _, raw := range []string{r.LastModified, r.Timestamp} {
		if raw == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
