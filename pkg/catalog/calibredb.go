package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Source provides a snapshot of library records for a dedupe run.
type Source interface {
	ListRecords(ctx context.Context, opts ListOptions) ([]Record, error)
}

// ListOptions filter and order a record listing.
type ListOptions struct {
	Search string
	SortBy string
	Limit  int
}

// runner executes an external command and returns its stdout. Swapped out in
// tests so no calibredb binary is needed.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s: %s", name, msg)
	}
	return stdout.Bytes(), nil
}

// Client wraps the calibredb command-line tool. It is the only component that
// mutates the library; everything else treats the catalog as read-only.
type Client struct {
	LibraryPath string
	run         runner
}

// NewClient returns a calibredb client for the given library path.
func NewClient(libraryPath string) *Client {
	return &Client{LibraryPath: libraryPath, run: execRunner}
}

// listFields is what `calibredb list` is asked to emit. Matches the Record
// JSON shape.
const listFields = "id,title,authors,isbn,identifiers,formats,timestamp,last_modified,comments"

// ListRecords lists library records via `calibredb list --for-machine`.
func (c *Client) ListRecords(ctx context.Context, opts ListOptions) ([]Record, error) {
	args := []string{
		"list",
		"--library-path", c.LibraryPath,
		"--for-machine",
		"--fields", listFields,
	}
	if opts.Search != "" {
		args = append(args, "--search", opts.Search)
	}
	if opts.SortBy != "" {
		args = append(args, "--sort-by", opts.SortBy)
	}
	if opts.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(opts.Limit))
	}

	out, err := c.run(ctx, "calibredb", args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(out, &records); err != nil {
		return nil, fmt.Errorf("decode calibredb output: %w", err)
	}
	// Format codes arrive as file paths or bare codes depending on the
	// calibre version; reduce both to upper-case codes.
	for i := range records {
		for j, f := range records[i].Formats {
			records[i].Formats[j] = formatCode(f)
		}
	}
	return records, nil
}

// formatCode reduces "/path/to/book.epub" or "epub" to "EPUB".
func formatCode(f string) string {
	if i := strings.LastIndexByte(f, '.'); i >= 0 && i < len(f)-1 {
		f = f[i+1:]
	}
	return strings.ToUpper(strings.TrimSpace(f))
}

// DeleteRecord removes a book from the library. Safe to call once per id;
// calibredb treats an already-removed id as an error, which is surfaced.
func (c *Client) DeleteRecord(ctx context.Context, id int, permanent bool) error {
	args := []string{"remove", "--library-path", c.LibraryPath}
	if permanent {
		args = append(args, "--permanent")
	}
	args = append(args, strconv.Itoa(id))

	if _, err := c.run(ctx, "calibredb", args...); err != nil {
		return fmt.Errorf("remove book %d: %w", id, err)
	}
	return nil
}

// SetIdentifier writes a single identifier back onto a record. This is the
// one metadata write the janitor performs (ISBN repair).
func (c *Client) SetIdentifier(ctx context.Context, id int, scheme, value string) error {
	args := []string{
		"set_metadata",
		"--library-path", c.LibraryPath,
		"--field", fmt.Sprintf("identifiers:%s:%s", scheme, value),
		strconv.Itoa(id),
	}
	if _, err := c.run(ctx, "calibredb", args...); err != nil {
		return fmt.Errorf("set identifier on book %d: %w", id, err)
	}
	return nil
}

// ShowMetadata returns the full metadata of a record as key/value pairs,
// parsed from the `calibredb show_metadata` text output. Keys that repeat
// accumulate into a comma-joined value.
func (c *Client) ShowMetadata(ctx context.Context, id int) (map[string]string, error) {
	out, err := c.run(ctx, "calibredb", "show_metadata", "--library-path", c.LibraryPath, strconv.Itoa(id))
	if err != nil {
		return nil, fmt.Errorf("show metadata for book %d: %w", id, err)
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		if prev, exists := meta[key]; exists && prev != "" {
			meta[key] = prev + ", " + value
		} else {
			meta[key] = value
		}
	}
	return meta, nil
}

var addedIDs = regexp.MustCompile(`Added book ids: (\d+)`)

// AddBook adds a file to the library with optional metadata fields
// (title, authors, isbn, ...) and returns the new book id.
func (c *Client) AddBook(ctx context.Context, path string, meta map[string]string) (int, error) {
	args := []string{"add", "--library-path", c.LibraryPath}
	for key, value := range meta {
		if value != "" {
			args = append(args, "--"+key, value)
		}
	}
	args = append(args, path)

	out, err := c.run(ctx, "calibredb", args...)
	if err != nil {
		return 0, fmt.Errorf("add book: %w", err)
	}
	m := addedIDs.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("add book: no id in calibredb output")
	}
	id, _ := strconv.Atoi(string(m[1]))
	return id, nil
}
