package enrich

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
)

func TestParseMetadata(t *testing.T) {
	out := `Title               : The Hobbit
Author(s)           : J. R. R. Tolkien
Publisher           : Houghton Mifflin
Comments            : In a hole in the ground
there lived a hobbit.
Identifiers         : isbn:9780547928227
`
	meta := parseMetadata(out)
	if meta["Title"] != "The Hobbit" {
		t.Errorf("Title = %q", meta["Title"])
	}
	if !strings.Contains(meta["Comments"], "there lived a hobbit") {
		t.Errorf("continuation line lost: %q", meta["Comments"])
	}
	if meta["Identifiers"] != "isbn:9780547928227" {
		t.Errorf("Identifiers = %q", meta["Identifiers"])
	}
}

func TestFetchByIdentifierArgs(t *testing.T) {
	var gotArgs []string
	c := NewClient()
	c.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("Title : X\n"), nil
	}

	if _, err := c.FetchByIdentifier(context.Background(), "isbn", "9780547928227"); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "fetch-ebook-metadata --isbn 9780547928227") {
		t.Errorf("unexpected command: %s", joined)
	}

	if _, err := c.FetchByIdentifier(context.Background(), "amazon", "B004XFYWNY"); err != nil {
		t.Fatal(err)
	}
	joined = strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "--identifier amazon:B004XFYWNY") {
		t.Errorf("unexpected command: %s", joined)
	}
}

// fakeSource serves a fixed record snapshot.
type fakeSource struct {
	records []catalog.Record
	err     error
}

func (f *fakeSource) ListRecords(context.Context, catalog.ListOptions) ([]catalog.Record, error) {
	return f.records, f.err
}

// fakeSetter records identifier writes and can fail specific ids.
type fakeSetter struct {
	set    map[int]string
	failID int
}

func (f *fakeSetter) SetIdentifier(_ context.Context, id int, scheme, value string) error {
	if id == f.failID {
		return fmt.Errorf("boom")
	}
	if f.set == nil {
		f.set = make(map[int]string)
	}
	f.set[id] = scheme + ":" + value
	return nil
}

func TestRepairISBNs(t *testing.T) {
	src := &fakeSource{records: []catalog.Record{
		{ID: 1, ISBN: "9780547928227"},                            // already has one
		{ID: 2, Comments: "First edition, ISBN 978-0-547-92822-7"}, // repairable
		{ID: 3, Comments: "no identifier here"},                   // nothing to find
		{ID: 4, Comments: "ISBN 043942089X", Title: "X"},          // repairable but setter fails
	}}
	setter := &fakeSetter{failID: 4}

	sum, err := RepairISBNs(context.Background(), src, setter, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Scanned != 4 || sum.Missing != 3 || sum.Repaired != 1 || sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if setter.set[2] != "isbn:9780547928227" {
		t.Errorf("record 2 repair = %q", setter.set[2])
	}
}

func TestRepairISBNsDryRun(t *testing.T) {
	src := &fakeSource{records: []catalog.Record{
		{ID: 1, Comments: "ISBN 9780547928227"},
	}}
	setter := &fakeSetter{}

	sum, err := RepairISBNs(context.Background(), src, setter, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Repaired != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(setter.set) != 0 {
		t.Errorf("dry run wrote identifiers: %v", setter.set)
	}
}

func TestEnrichBatch(t *testing.T) {
	src := &fakeSource{records: []catalog.Record{
		{ID: 1, Title: "Has description", Comments: "already enriched"},
		{ID: 2, Title: "The Hobbit", ISBN: "9780547928227"},
		{ID: 3, Title: "Unknown Book", Authors: catalog.AuthorList{"Somebody"}},
	}}

	c := NewClient()
	var lookups []string
	c.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		lookups = append(lookups, strings.Join(args, " "))
		if strings.Contains(lookups[len(lookups)-1], "Unknown Book") {
			return nil, fmt.Errorf("no results")
		}
		return []byte("Title : The Hobbit\n"), nil
	}

	results, err := c.EnrichBatch(context.Background(), src, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2 (record 1 skipped)", results)
	}
	if results[0].Err != "" || results[0].Metadata["Title"] != "The Hobbit" {
		t.Errorf("isbn lookup result = %+v", results[0])
	}
	if results[1].Err == "" {
		t.Error("failed lookup should carry its error and not abort the batch")
	}
	if !strings.Contains(lookups[0], "--isbn 9780547928227") {
		t.Errorf("expected isbn lookup first, got %v", lookups)
	}
}
