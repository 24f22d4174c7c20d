// Package api exposes the janitor's actions over HTTP and MCP. Both
// transports dispatch to the same kit.Endpoints defined here.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
	"github.com/alexchilton/calibre-janitor/pkg/dedupe"
	"github.com/alexchilton/calibre-janitor/pkg/enrich"
	"github.com/alexchilton/calibre-janitor/pkg/isbn"
	"github.com/alexchilton/calibre-janitor/pkg/kit"
)

// Catalog is the slice of the calibredb client the endpoints need.
type Catalog interface {
	ListRecords(ctx context.Context, opts catalog.ListOptions) ([]catalog.Record, error)
	DeleteRecord(ctx context.Context, id int, permanent bool) error
	ShowMetadata(ctx context.Context, id int) (map[string]string, error)
	AddBook(ctx context.Context, path string, meta map[string]string) (int, error)
}

// MetadataFetcher looks up metadata from online sources.
type MetadataFetcher interface {
	FetchByIdentifier(ctx context.Context, scheme, value string) (map[string]string, error)
	FetchByTitle(ctx context.Context, title, authors string) (map[string]string, error)
}

// BatchEnricher fetches metadata for every record missing a description.
// enrich.Client implements it.
type BatchEnricher interface {
	EnrichBatch(ctx context.Context, src catalog.Source, limit int, logger *slog.Logger) ([]enrich.EnrichResult, error)
}

// Service is the caller-owned backend behind every endpoint. No package
// state: construct one, hand it to NewRouter and RegisterMCPTools.
type Service struct {
	DefaultLibrary  string
	RecoveryLogPath string
	Logger          *slog.Logger

	// OpenCatalog builds a catalog client for a library path. Overridden in
	// tests; nil means calibredb.
	OpenCatalog func(library string) Catalog
	Fetcher     MetadataFetcher
	Enricher    BatchEnricher
}

// NewService returns a Service backed by calibredb for the given library.
func NewService(library string, logger *slog.Logger) *Service {
	return &Service{
		DefaultLibrary:  library,
		RecoveryLogPath: dedupe.DefaultRecoveryLogPath(),
		Logger:          logger,
	}
}

func (s *Service) catalog(library string) Catalog {
	if library == "" {
		library = s.DefaultLibrary
	}
	if s.OpenCatalog != nil {
		return s.OpenCatalog(library)
	}
	return catalog.NewClient(library)
}

// audit logs one line per dispatched action with its transport and outcome.
func audit(logger *slog.Logger, action string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, request)
			attrs := []any{
				"action", action,
				"transport", kit.GetTransport(ctx),
				"duration", time.Since(start),
			}
			if lib := kit.GetLibrary(ctx); lib != "" {
				attrs = append(attrs, "library", lib)
			}
			if err != nil {
				logger.Warn("action failed", append(attrs, "error", err)...)
			} else {
				logger.Info("action", attrs...)
			}
			return resp, err
		}
	}
}

// wire applies the cross-cutting middleware stack to an endpoint. Both
// transports go through it.
func wire(s *Service, action string, e kit.Endpoint) kit.Endpoint {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return kit.Chain(audit(logger, action))(e)
}

// --- find duplicates ---

type findDuplicatesReq struct {
	Library      string
	FormatOutput bool
}

type findDuplicatesResp struct {
	TotalDuplicates    int             `json:"total_duplicates"`
	ExactMatchGroups   int             `json:"exact_match_groups"`
	SimilarTitleGroups int             `json:"similar_title_groups"`
	ISBNGroups         int             `json:"isbn_duplicate_groups"`
	FormattedResults   string          `json:"formatted_results,omitempty"`
	Results            *dedupe.Results `json:"results,omitempty"`
}

func findDuplicatesEndpoint(s *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*findDuplicatesReq)
		records, err := s.catalog(req.Library).ListRecords(ctx, catalog.ListOptions{})
		if err != nil {
			return nil, err
		}
		res := dedupe.FindAll(records)
		resp := &findDuplicatesResp{
			TotalDuplicates:    res.TotalDuplicates(),
			ExactMatchGroups:   len(res.Exact),
			SimilarTitleGroups: len(res.SimilarTitles),
			ISBNGroups:         len(res.ByIdentifier),
		}
		if req.FormatOutput {
			resp.FormattedResults = res.Format()
		} else {
			resp.Results = res
		}
		return resp, nil
	}
}

// --- resolve duplicates ---

type resolveReq struct {
	Library        string
	Policy         string
	FormatPriority string
}

type resolveResp struct {
	Summary   *dedupe.Summary   `json:"summary"`
	Decisions []dedupe.Decision `json:"decisions"`
}

func resolveEndpoint(s *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*resolveReq)

		policy, err := dedupe.ParsePolicy(req.Policy)
		if err != nil {
			return nil, err
		}
		// No stdin on a tool transport: interactive resolution is CLI-only.
		if policy == dedupe.PolicyInteractive {
			return nil, fmt.Errorf("interactive policy is not available over the API; use find-only, dry-run, or auto")
		}

		cat := s.catalog(req.Library)
		records, err := cat.ListRecords(ctx, catalog.ListOptions{})
		if err != nil {
			return nil, err
		}
		res := dedupe.FindAll(records)

		resolver := &dedupe.Resolver{
			Policy:   policy,
			Priority: dedupe.ParseFormatPriority(req.FormatPriority),
			Logger:   s.Logger,
		}
		if policy == dedupe.PolicyAuto {
			resolver.Deleter = cat
			log, err := dedupe.OpenRecoveryLog(s.RecoveryLogPath)
			if err != nil {
				return nil, err
			}
			defer log.Close()
			resolver.Log = log
		}

		summary, decisions, err := resolver.Resolve(ctx, res.Groups())
		if err != nil {
			return nil, err
		}
		return &resolveResp{Summary: summary, Decisions: decisions}, nil
	}
}

// --- list books ---

type listBooksReq struct {
	Library string
	Search  string
	SortBy  string
	Limit   int
}

type listBooksResp struct {
	Count int              `json:"count"`
	Books []catalog.Record `json:"books"`
}

func listBooksEndpoint(s *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*listBooksReq)
		books, err := s.catalog(req.Library).ListRecords(ctx, catalog.ListOptions{
			Search: req.Search,
			SortBy: req.SortBy,
			Limit:  req.Limit,
		})
		if err != nil {
			return nil, err
		}
		return &listBooksResp{Count: len(books), Books: books}, nil
	}
}

// --- book details ---

type bookDetailsReq struct {
	Library string
	ID      int
}

func bookDetailsEndpoint(s *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*bookDetailsReq)
		if req.ID <= 0 {
			return nil, fmt.Errorf("book_id must be a positive integer")
		}
		return s.catalog(req.Library).ShowMetadata(ctx, req.ID)
	}
}

// --- ISBN extraction ---

type extractISBNsReq struct {
	Text string
}

type extractISBNsResp struct {
	ISBNs []string `json:"isbns"`
	Count int      `json:"count"`
}

func extractISBNsEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*extractISBNsReq)
		if req.Text == "" {
			return nil, fmt.Errorf("text is empty")
		}
		found := isbn.ExtractFromText(req.Text)
		return &extractISBNsResp{ISBNs: found, Count: len(found)}, nil
	}
}

// --- metadata fetch ---

type fetchMetadataReq struct {
	Scheme  string
	Value   string
	Title   string
	Authors string
}

func fetchMetadataEndpoint(s *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*fetchMetadataReq)
		if s.Fetcher == nil {
			return nil, fmt.Errorf("metadata fetching is not configured")
		}
		switch {
		case req.Scheme != "" && req.Value != "":
			return s.Fetcher.FetchByIdentifier(ctx, req.Scheme, req.Value)
		case req.Title != "":
			return s.Fetcher.FetchByTitle(ctx, req.Title, req.Authors)
		}
		return nil, fmt.Errorf("provide identifier_type+identifier_value or a title")
	}
}

// --- batch enrichment ---

type enrichBatchReq struct {
	Library string
	Limit   int
}

type enrichBatchResp struct {
	Count   int                   `json:"count"`
	Results []enrich.EnrichResult `json:"results"`
}

func enrichBatchEndpoint(s *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*enrichBatchReq)
		if s.Enricher == nil {
			return nil, fmt.Errorf("metadata enrichment is not configured")
		}
		results, err := s.Enricher.EnrichBatch(ctx, s.catalog(req.Library), req.Limit, s.Logger)
		if err != nil {
			return nil, err
		}
		return &enrichBatchResp{Count: len(results), Results: results}, nil
	}
}

// --- add book ---

type addBookReq struct {
	Library string
	Path    string
	Title   string
	Authors string
	ISBN    string
}

type addBookResp struct {
	ID int `json:"id"`
}

func addBookEndpoint(s *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*addBookReq)
		if req.Path == "" {
			return nil, fmt.Errorf("path is required")
		}
		meta := map[string]string{
			"title":   req.Title,
			"authors": req.Authors,
			"isbn":    req.ISBN,
		}
		id, err := s.catalog(req.Library).AddBook(ctx, req.Path, meta)
		if err != nil {
			return nil, err
		}
		return &addBookResp{ID: id}, nil
	}
}
