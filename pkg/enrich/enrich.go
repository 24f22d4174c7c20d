// Package enrich fills metadata gaps in library records: fetching rich
// metadata from online sources through the fetch-ebook-metadata tool and
// repairing records whose ISBN is only present in their description text.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
	"github.com/alexchilton/calibre-janitor/pkg/isbn"
)

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

// Client wraps the fetch-ebook-metadata binary, which queries Amazon,
// Goodreads, Google Books and other sources.
type Client struct {
	Timeout int // seconds passed to --timeout; 0 means the tool's default
	run     runner
}

// NewClient returns an enrichment client with a 30 second lookup timeout.
func NewClient() *Client {
	return &Client{Timeout: 30, run: execRunner}
}

// FetchByIdentifier looks up metadata by an identifier such as
// isbn:9780547928227, amazon:B004XFYWNY, or goodreads:39799149.
func (c *Client) FetchByIdentifier(ctx context.Context, scheme, value string) (map[string]string, error) {
	var args []string
	if strings.EqualFold(scheme, "isbn") {
		args = []string{"--isbn", value}
	} else {
		args = []string{"--identifier", scheme + ":" + value}
	}
	return c.fetch(ctx, args)
}

// FetchByTitle looks up metadata by title and optional authors.
func (c *Client) FetchByTitle(ctx context.Context, title, authors string) (map[string]string, error) {
	args := []string{"--title", title}
	if authors != "" {
		args = append(args, "--authors", authors)
	}
	return c.fetch(ctx, args)
}

func (c *Client) fetch(ctx context.Context, args []string) (map[string]string, error) {
	if c.Timeout > 0 {
		args = append(args, "--timeout", fmt.Sprint(c.Timeout))
	}
	out, err := c.run(ctx, "fetch-ebook-metadata", args...)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	return parseMetadata(string(out)), nil
}

// parseMetadata turns fetch-ebook-metadata's "Key : Value" text output into
// a map. Continuation lines (no colon) extend the previous value.
func parseMetadata(out string) map[string]string {
	meta := make(map[string]string)
	lastKey := ""
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || key == "" {
			if lastKey != "" && strings.TrimSpace(line) != "" {
				meta[lastKey] += " " + strings.TrimSpace(line)
			}
			continue
		}
		meta[key] = value
		lastKey = key
	}
	return meta
}

// IdentifierSetter writes one identifier onto a record. catalog.Client
// implements it.
type IdentifierSetter interface {
	SetIdentifier(ctx context.Context, id int, scheme, value string) error
}

// RepairSummary counts the outcome of an ISBN repair run.
type RepairSummary struct {
	Scanned  int `json:"scanned"`
	Missing  int `json:"missing"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// RepairISBNs scans records without an ISBN, extracts candidate ISBNs from
// their description text, and writes the first valid one back to the catalog.
// Per-record failures are counted and the run continues. With dryRun set, the
// setter is never called.
func RepairISBNs(ctx context.Context, src catalog.Source, setter IdentifierSetter, dryRun bool, logger *slog.Logger) (*RepairSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records, err := src.ListRecords(ctx, catalog.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("repair isbns: %w", err)
	}

	sum := &RepairSummary{Scanned: len(records)}
	for _, r := range records {
		if hasISBN(r) {
			continue
		}
		sum.Missing++

		candidates := isbn.ExtractFromText(r.Comments)
		if len(candidates) == 0 {
			candidates = isbn.ExtractFromText(r.Title)
		}
		if len(candidates) == 0 {
			continue
		}

		if dryRun {
			logger.Info("would set isbn", "id", r.ID, "isbn", candidates[0])
			sum.Repaired++
			continue
		}
		if err := setter.SetIdentifier(ctx, r.ID, "isbn", candidates[0]); err != nil {
			logger.Error("set isbn failed", "id", r.ID, "error", err)
			sum.Failed++
			continue
		}
		logger.Info("isbn repaired", "id", r.ID, "isbn", candidates[0])
		sum.Repaired++
	}
	return sum, nil
}

func hasISBN(r catalog.Record) bool {
	if r.ISBN != "" {
		return true
	}
	for scheme := range r.Identifiers {
		if strings.Contains(strings.ToLower(scheme), "isbn") {
			return true
		}
	}
	return false
}

// EnrichResult is the outcome for one record in a batch enrichment run.
type EnrichResult struct {
	ID       int               `json:"id"`
	Title    string            `json:"title"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Err      string            `json:"error,omitempty"`
}

// EnrichBatch fetches online metadata for records that lack a description.
// Lookups are sequential; a failed lookup is recorded on its result and the
// batch continues. Limit bounds how many lookups are attempted (0 = all).
func (c *Client) EnrichBatch(ctx context.Context, src catalog.Source, limit int, logger *slog.Logger) ([]EnrichResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records, err := src.ListRecords(ctx, catalog.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("enrich batch: %w", err)
	}

	var results []EnrichResult
	for _, r := range records {
		if r.Comments != "" {
			continue
		}
		if limit > 0 && len(results) >= limit {
			break
		}

		res := EnrichResult{ID: r.ID, Title: r.Title}
		var meta map[string]string
		if hasISBN(r) && r.ISBN != "" {
			meta, err = c.FetchByIdentifier(ctx, "isbn", r.ISBN)
		} else {
			meta, err = c.FetchByTitle(ctx, r.Title, r.Authors.String())
		}
		if err != nil {
			logger.Warn("lookup failed", "id", r.ID, "error", err)
			res.Err = err.Error()
		} else {
			res.Metadata = meta
		}
		results = append(results, res)
	}
	return results, nil
}
