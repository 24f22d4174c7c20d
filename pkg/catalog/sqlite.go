package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLSource reads records straight out of Calibre's metadata.db. It opens the
// database read-only so a running Calibre instance is never disturbed. Faster
// than shelling out to calibredb for large libraries, but requires direct
// filesystem access to the library.
type SQLSource struct {
	db *sql.DB
}

// OpenSQLSource opens <libraryPath>/metadata.db in read-only mode.
func OpenSQLSource(libraryPath string) (*SQLSource, error) {
	dbPath := filepath.Join(libraryPath, "metadata.db")
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("library database not found at %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open metadata.db: %w", err)
	}
	return &SQLSource{db: db}, nil
}

// Close releases the database handle.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// recordQuery assembles one row per book with formats collected via
// GROUP_CONCAT. Periodical/magazine issues are excluded; they share titles
// across issues and would flood every grouper with false duplicates.
const recordQuery = `
	SELECT
		b.id,
		b.title,
		b.author_sort,
		b.timestamp,
		b.last_modified,
		COALESCE(GROUP_CONCAT(d.format, ','), ''),
		COALESCE(c.text, ''),
		COALESCE(i.val, '')
	FROM books b
	LEFT JOIN data d ON b.id = d.book
	LEFT JOIN comments c ON b.id = c.book
	LEFT JOIN identifiers i ON b.id = i.book AND i.type = 'isbn'
	WHERE c.text IS NULL OR c.text NOT LIKE '%periodical/magazine issue%'
	GROUP BY b.id
	ORDER BY b.id`

// ListRecords returns the full record snapshot. Search/SortBy are not
// supported by the SQL path; Limit is applied after the query.
func (s *SQLSource) ListRecords(ctx context.Context, opts ListOptions) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, recordQuery)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var authorSort, formats string
		if err := rows.Scan(&r.ID, &r.Title, &authorSort, &r.Timestamp, &r.LastModified,
			&formats, &r.Comments, &r.ISBN); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Authors = parseAuthorSort(authorSort)
		if formats != "" {
			for _, f := range strings.Split(formats, ",") {
				r.Formats = append(r.Formats, formatCode(f))
			}
		}
		if r.ISBN != "" {
			r.Identifiers = Identifiers{"isbn": r.ISBN}
		}
		records = append(records, r)
		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

// parseAuthorSort splits Calibre's author_sort column ("Tolkien, J. R. R. &
// Lewis, C. S.") into one entry per author.
func parseAuthorSort(s string) AuthorList {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, " & ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
