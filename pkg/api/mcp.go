package api

import (
	"context"

	"github.com/alexchilton/calibre-janitor/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// libraryCtx tags the request context with the per-call library override so
// the audit middleware can log it.
func libraryCtx(library string) func(context.Context) context.Context {
	if library == "" {
		return nil
	}
	return func(ctx context.Context) context.Context {
		return kit.WithLibrary(ctx, library)
	}
}

// RegisterMCPTools registers the janitor MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, s *Service) {
	registerFindDuplicates(srv, s)
	registerResolveDuplicates(srv, s)
	registerListBooks(srv, s)
	registerBookDetails(srv, s)
	registerExtractISBNs(srv, s)
	registerFetchMetadata(srv, s)
	registerBatchEnrich(srv, s)
	registerAddBook(srv, s)
}

func registerFindDuplicates(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("calibre_find_duplicates",
		mcp.WithDescription("Find duplicate books in the Calibre library: exact title/author matches, similar titles by the same author, and shared ISBNs."),
		mcp.WithString("library_path", mcp.Description("Path to the Calibre library (default: configured library)")),
		mcp.WithBoolean("format_output", mcp.Description("Render findings as a markdown report (default true)")),
	)

	kit.RegisterMCPTool(srv, tool, wire(s, "find_duplicates", findDuplicatesEndpoint(s)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		format := true
		if v, ok := args["format_output"].(bool); ok {
			format = v
		}
		library, _ := args["library_path"].(string)
		return &kit.MCPDecodeResult{
			Request: &findDuplicatesReq{
				Library:      library,
				FormatOutput: format,
			},
			EnrichCtx: libraryCtx(library),
		}, nil
	})
}

func registerResolveDuplicates(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("calibre_resolve_duplicates",
		mcp.WithDescription("Resolve duplicate books: score each group by format quality, format count, and recency, pick a keeper, and report or delete the rest. Policy 'auto' deletes; 'dry-run' and 'find-only' only report."),
		mcp.WithString("policy", mcp.Required(), mcp.Description("find-only, dry-run, or auto")),
		mcp.WithString("format_priority", mcp.Description("Comma-separated format ranking, least to most preferred (default DJVU,AZW3,MOBI,PDF,EPUB)")),
		mcp.WithString("library_path", mcp.Description("Path to the Calibre library")),
	)

	kit.RegisterMCPTool(srv, tool, wire(s, "resolve_duplicates", resolveEndpoint(s)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		policy, _ := args["policy"].(string)
		priority, _ := args["format_priority"].(string)
		library, _ := args["library_path"].(string)
		return &kit.MCPDecodeResult{
			Request: &resolveReq{
				Library:        library,
				Policy:         policy,
				FormatPriority: priority,
			},
			EnrichCtx: libraryCtx(library),
		}, nil
	})
}

func registerListBooks(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("calibre_list_books",
		mcp.WithDescription("List books in the Calibre library, optionally filtered by a calibre search expression."),
		mcp.WithString("search", mcp.Description("Calibre search expression (e.g. author:tolkien)")),
		mcp.WithString("sort_by", mcp.Description("Field to sort by (title, authors, timestamp, ...)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of books to return")),
		mcp.WithString("library_path", mcp.Description("Path to the Calibre library")),
	)

	kit.RegisterMCPTool(srv, tool, wire(s, "list_books", listBooksEndpoint(s)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		limit := 0
		if v, ok := args["limit"].(float64); ok {
			limit = int(v)
		}
		search, _ := args["search"].(string)
		sortBy, _ := args["sort_by"].(string)
		library, _ := args["library_path"].(string)
		return &kit.MCPDecodeResult{
			Request: &listBooksReq{
				Library: library,
				Search:  search,
				SortBy:  sortBy,
				Limit:   limit,
			},
			EnrichCtx: libraryCtx(library),
		}, nil
	})
}

func registerBookDetails(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("calibre_get_book_details",
		mcp.WithDescription("Get full metadata for one book: title, authors, identifiers, formats, description, tags, series."),
		mcp.WithNumber("book_id", mcp.Required(), mcp.Description("The Calibre book id")),
		mcp.WithString("library_path", mcp.Description("Path to the Calibre library")),
	)

	kit.RegisterMCPTool(srv, tool, wire(s, "book_details", bookDetailsEndpoint(s)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		id, _ := args["book_id"].(float64)
		library, _ := args["library_path"].(string)
		return &kit.MCPDecodeResult{
			Request: &bookDetailsReq{
				Library: library,
				ID:      int(id),
			},
			EnrichCtx: libraryCtx(library),
		}, nil
	})
}

func registerExtractISBNs(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("calibre_extract_isbns",
		mcp.WithDescription("Extract and validate ISBN-10/ISBN-13 numbers from free text (book descriptions, OCR output, ...)."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to scan")),
	)

	kit.RegisterMCPTool(srv, tool, wire(s, "extract_isbns", extractISBNsEndpoint()), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		text, _ := args["text"].(string)
		return &kit.MCPDecodeResult{Request: &extractISBNsReq{Text: text}}, nil
	})
}

func registerFetchMetadata(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("calibre_fetch_metadata",
		mcp.WithDescription("Fetch book metadata from online sources (Amazon, Goodreads, Google Books) by identifier or by title/author."),
		mcp.WithString("identifier_type", mcp.Description("isbn, amazon, or goodreads")),
		mcp.WithString("identifier_value", mcp.Description("The identifier value")),
		mcp.WithString("title", mcp.Description("Book title, when no identifier is available")),
		mcp.WithString("authors", mcp.Description("Author name(s) to narrow a title search")),
	)

	kit.RegisterMCPTool(srv, tool, wire(s, "fetch_metadata", fetchMetadataEndpoint(s)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		scheme, _ := args["identifier_type"].(string)
		value, _ := args["identifier_value"].(string)
		title, _ := args["title"].(string)
		authors, _ := args["authors"].(string)
		return &kit.MCPDecodeResult{Request: &fetchMetadataReq{
			Scheme:  scheme,
			Value:   value,
			Title:   title,
			Authors: authors,
		}}, nil
	})
}

func registerBatchEnrich(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("calibre_batch_enrich",
		mcp.WithDescription("Fetch online metadata for books that have no description, one lookup per book, and report the result of each lookup."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of lookups to attempt (0 = all)")),
		mcp.WithString("library_path", mcp.Description("Path to the Calibre library")),
	)

	kit.RegisterMCPTool(srv, tool, wire(s, "enrich_batch", enrichBatchEndpoint(s)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		limit := 0
		if v, ok := args["limit"].(float64); ok {
			limit = int(v)
		}
		library, _ := args["library_path"].(string)
		return &kit.MCPDecodeResult{
			Request:   &enrichBatchReq{Library: library, Limit: limit},
			EnrichCtx: libraryCtx(library),
		}, nil
	})
}

func registerAddBook(srv *server.MCPServer, s *Service) {
	tool := mcp.NewTool("calibre_add_book",
		mcp.WithDescription("Add a book file to the Calibre library with optional metadata, returning the new book id."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the book file (epub, pdf, mobi, ...)")),
		mcp.WithString("title", mcp.Description("Title to set on the new book")),
		mcp.WithString("authors", mcp.Description("Author name(s) to set")),
		mcp.WithString("isbn", mcp.Description("ISBN identifier to set")),
		mcp.WithString("library_path", mcp.Description("Path to the Calibre library")),
	)

	kit.RegisterMCPTool(srv, tool, wire(s, "add_book", addBookEndpoint(s)), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		path, _ := args["path"].(string)
		title, _ := args["title"].(string)
		authors, _ := args["authors"].(string)
		isbn, _ := args["isbn"].(string)
		library, _ := args["library_path"].(string)
		return &kit.MCPDecodeResult{
			Request: &addBookReq{
				Library: library,
				Path:    path,
				Title:   title,
				Authors: authors,
				ISBN:    isbn,
			},
			EnrichCtx: libraryCtx(library),
		}, nil
	})
}
