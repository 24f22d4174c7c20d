package dedupe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
)

// RecoveryLog is an append-only plain-text record of every confirmed
// deletion, with enough of each book's metadata for a human to re-add it.
// It is written to, never read back; recovery is a manual operation.
type RecoveryLog struct {
	f   *os.File
	now func() time.Time
}

// OpenRecoveryLog opens (creating parent directories as needed) the log file
// in append mode.
func OpenRecoveryLog(path string) (*RecoveryLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open recovery log: %w", err)
	}
	return &RecoveryLog{f: f, now: time.Now}, nil
}

// Append writes one entry for a record whose deletion has been confirmed.
// Callers must only invoke it after the external delete succeeded, so a crash
// mid-run can never log a deletion that did not happen.
func (l *RecoveryLog) Append(r catalog.Record) error {
	var b strings.Builder
	b.WriteString("\n" + strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, "Deleted: %s\n", l.now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Book ID: %d\n", r.ID)
	fmt.Fprintf(&b, "Title: %s\n", r.Title)
	fmt.Fprintf(&b, "Authors: %s\n", r.Authors)
	fmt.Fprintf(&b, "Formats: %s\n", strings.Join(r.Formats, ", "))
	fmt.Fprintf(&b, "ISBN: %s\n", r.ISBN)
	fmt.Fprintf(&b, "Added: %s\n", r.Timestamp)
	fmt.Fprintf(&b, "Last Modified: %s\n", r.LastModified)

	if _, err := l.f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append recovery log: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *RecoveryLog) Close() error {
	return l.f.Close()
}

// DefaultRecoveryLogPath is where the dedupe CLI writes its log.
func DefaultRecoveryLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".calibre-janitor", "deletion_log.txt")
}
