package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fakeRunner records calls and replays canned output.
type fakeRunner struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.output, f.err
}

func newTestClient(out string, err error) (*Client, *fakeRunner) {
	f := &fakeRunner{output: []byte(out), err: err}
	c := NewClient("/lib")
	c.run = f.run
	return c, f
}

func TestListRecords(t *testing.T) {
	out := `[
		{"id": 1, "title": "The Hobbit", "authors": "J. R. R. Tolkien",
		 "formats": ["/lib/b/The Hobbit.epub", "MOBI"],
		 "identifiers": {"isbn": "9780547928227"},
		 "timestamp": "2024-01-01T00:00:00+00:00"},
		{"id": 2, "title": "Dune", "authors": ["Frank Herbert"], "formats": []}
	]`
	c, f := newTestClient(out, nil)

	records, err := c.ListRecords(context.Background(), ListOptions{Search: "tolkien", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Formats[0] != "EPUB" || records[0].Formats[1] != "MOBI" {
		t.Errorf("formats not reduced to codes: %v", records[0].Formats)
	}
	if records[0].Authors[0] != "J. R. R. Tolkien" {
		t.Errorf("authors = %v", records[0].Authors)
	}

	call := strings.Join(f.calls[0], " ")
	for _, want := range []string{"calibredb list", "--library-path /lib", "--for-machine", "--search tolkien", "--limit 5"} {
		if !strings.Contains(call, want) {
			t.Errorf("command missing %q: %s", want, call)
		}
	}
}

func TestListRecordsFailsLoudly(t *testing.T) {
	c, _ := newTestClient("", fmt.Errorf("calibredb: No library found"))
	if _, err := c.ListRecords(context.Background(), ListOptions{}); err == nil {
		t.Fatal("expected error when calibredb fails")
	}
}

func TestDeleteRecord(t *testing.T) {
	c, f := newTestClient("", nil)
	if err := c.DeleteRecord(context.Background(), 42, true); err != nil {
		t.Fatal(err)
	}
	call := strings.Join(f.calls[0], " ")
	for _, want := range []string{"calibredb remove", "--permanent", " 42"} {
		if !strings.Contains(call, want) {
			t.Errorf("command missing %q: %s", want, call)
		}
	}
}

func TestSetIdentifier(t *testing.T) {
	c, f := newTestClient("", nil)
	if err := c.SetIdentifier(context.Background(), 7, "isbn", "9780547928227"); err != nil {
		t.Fatal(err)
	}
	call := strings.Join(f.calls[0], " ")
	if !strings.Contains(call, "identifiers:isbn:9780547928227") {
		t.Errorf("identifier field not set: %s", call)
	}
}

func TestShowMetadata(t *testing.T) {
	out := "Title               : The Hobbit\nAuthor(s)           : J. R. R. Tolkien\nTags                : Fantasy\nTags                : Classics\n"
	c, _ := newTestClient(out, nil)

	meta, err := c.ShowMetadata(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if meta["Title"] != "The Hobbit" {
		t.Errorf("Title = %q", meta["Title"])
	}
	if meta["Tags"] != "Fantasy, Classics" {
		t.Errorf("repeated keys should accumulate, got %q", meta["Tags"])
	}
}

func TestAddBook(t *testing.T) {
	c, _ := newTestClient("Added book ids: 17\n", nil)
	id, err := c.AddBook(context.Background(), "/tmp/book.epub", map[string]string{"title": "New"})
	if err != nil {
		t.Fatal(err)
	}
	if id != 17 {
		t.Errorf("id = %d, want 17", id)
	}
}

func TestFormatCode(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/lib/x/book.epub", "EPUB"},
		{"pdf", "PDF"},
		{"MOBI", "MOBI"},
		{" azw3 ", "AZW3"},
	}
	for _, tt := range tests {
		if got := formatCode(tt.in); got != tt.want {
			t.Errorf("formatCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
