package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alexchilton/calibre-janitor/pkg/kit"
)

// NewRouter returns an http.Handler with all janitor API routes.
func NewRouter(s *Service) http.Handler {
	mux := http.NewServeMux()
	h := &handler{
		findDuplicates: wire(s, "find_duplicates", findDuplicatesEndpoint(s)),
		resolve:        wire(s, "resolve_duplicates", resolveEndpoint(s)),
		listBooks:      wire(s, "list_books", listBooksEndpoint(s)),
		bookDetails:    wire(s, "book_details", bookDetailsEndpoint(s)),
		extractISBNs:   wire(s, "extract_isbns", extractISBNsEndpoint()),
		fetchMetadata:  wire(s, "fetch_metadata", fetchMetadataEndpoint(s)),
		enrichBatch:    wire(s, "enrich_batch", enrichBatchEndpoint(s)),
		addBook:        wire(s, "add_book", addBookEndpoint(s)),
		svc:            s,
	}

	mux.HandleFunc("GET /v1/duplicates", h.handleFindDuplicates)
	mux.HandleFunc("POST /v1/duplicates/resolve", h.handleResolve)
	mux.HandleFunc("GET /v1/books", h.handleListBooks)
	mux.HandleFunc("POST /v1/books", h.handleAddBook)
	mux.HandleFunc("GET /v1/books/{id}", h.handleBookDetails)
	mux.HandleFunc("POST /v1/isbn/extract", h.handleExtractISBNs)
	mux.HandleFunc("POST /v1/metadata/fetch", h.handleFetchMetadata)
	mux.HandleFunc("POST /v1/enrich/batch", h.handleEnrichBatch)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(mux)
}

type handler struct {
	findDuplicates kit.Endpoint
	resolve        kit.Endpoint
	listBooks      kit.Endpoint
	bookDetails    kit.Endpoint
	extractISBNs   kit.Endpoint
	fetchMetadata  kit.Endpoint
	enrichBatch    kit.Endpoint
	addBook        kit.Endpoint
	svc            *Service
}

func (h *handler) handleFindDuplicates(w http.ResponseWriter, r *http.Request) {
	req := &findDuplicatesReq{
		Library:      r.URL.Query().Get("library"),
		FormatOutput: r.URL.Query().Get("format") != "false",
	}
	resp, err := h.findDuplicates(kit.WithLibrary(r.Context(), req.Library), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type httpResolveRequest struct {
	Library        string `json:"library,omitempty"`
	Policy         string `json:"policy"`
	FormatPriority string `json:"format_priority,omitempty"`
}

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req httpResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.resolve(kit.WithLibrary(r.Context(), req.Library), &resolveReq{
		Library:        req.Library,
		Policy:         req.Policy,
		FormatPriority: req.FormatPriority,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	resp, err := h.listBooks(kit.WithLibrary(r.Context(), q.Get("library")), &listBooksReq{
		Library: q.Get("library"),
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		Limit:   limit,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleBookDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	resp, err := h.bookDetails(kit.WithLibrary(r.Context(), r.URL.Query().Get("library")), &bookDetailsReq{
		Library: r.URL.Query().Get("library"),
		ID:      id,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type httpExtractRequest struct {
	Text string `json:"text"`
}

func (h *handler) handleExtractISBNs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 256*1024)
	var req httpExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.extractISBNs(r.Context(), &extractISBNsReq{Text: req.Text})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type httpFetchRequest struct {
	IdentifierType  string `json:"identifier_type,omitempty"`
	IdentifierValue string `json:"identifier_value,omitempty"`
	Title           string `json:"title,omitempty"`
	Authors         string `json:"authors,omitempty"`
}

func (h *handler) handleFetchMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req httpFetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.fetchMetadata(r.Context(), &fetchMetadataReq{
		Scheme:  req.IdentifierType,
		Value:   req.IdentifierValue,
		Title:   req.Title,
		Authors: req.Authors,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type httpEnrichRequest struct {
	Library string `json:"library,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func (h *handler) handleEnrichBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req httpEnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.enrichBatch(kit.WithLibrary(r.Context(), req.Library), &enrichBatchReq{
		Library: req.Library,
		Limit:   req.Limit,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type httpAddBookRequest struct {
	Library string `json:"library,omitempty"`
	Path    string `json:"path"`
	Title   string `json:"title,omitempty"`
	Authors string `json:"authors,omitempty"`
	ISBN    string `json:"isbn,omitempty"`
}

func (h *handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req httpAddBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	resp, err := h.addBook(kit.WithLibrary(r.Context(), req.Library), &addBookReq{
		Library: req.Library,
		Path:    req.Path,
		Title:   req.Title,
		Authors: req.Authors,
		ISBN:    req.ISBN,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status  string `json:"status"`
	Library string `json:"library"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Library: h.svc.DefaultLibrary,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r.WithContext(kit.WithTransport(r.Context(), "http")))
	})
}
