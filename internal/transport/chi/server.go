package chi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/domain"
	dombatch "github.com/fal1winter/mentorsys/internal/domain/batch"
	"github.com/fal1winter/mentorsys/internal/domain/document"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
	"github.com/fal1winter/mentorsys/internal/domain/search/request"
	"github.com/fal1winter/mentorsys/internal/domain/search/result"
	logpkg "github.com/fal1winter/mentorsys/internal/logger"
	healthuc "github.com/fal1winter/mentorsys/internal/usecase/health"
	indexinguc "github.com/fal1winter/mentorsys/internal/usecase/indexing"
	searchuc "github.com/fal1winter/mentorsys/internal/usecase/search"
)

// Indexer is the write side of the API.
type Indexer interface {
	Index(ctx context.Context, doc document.Source) error
	Remove(ctx context.Context, kind entity.Kind, id int64) error
	BatchIndex(ctx context.Context, docs []document.Source) (int, []dombatch.Result)
}

// Searcher is the read side of the API.
type Searcher interface {
	Search(ctx context.Context, kind entity.Kind, query string, topK int) ([]result.Result, error)
	SearchUnified(ctx context.Context, query string, topK int, scope request.Scope) (searchuc.Unified, error)
	SimilarByID(ctx context.Context, kind entity.Kind, id int64, topK int) ([]result.Result, error)
	SimilarByText(ctx context.Context, doc document.Source, excludeID int64, topK int) ([]result.Result, error)
	Stats(ctx context.Context) (map[entity.Kind]int, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler maps a domain error to a status and client message. Returns false if not matched.
type errorHandler func(err error) (int, string, bool)

// failure renders an error message in the response shape of an endpoint.
type failure func(msg string) any

// Server serves the indexing and search API.
type Server struct {
	indexer       Indexer
	search        Searcher
	embed         domain.Embedder
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	indexer Indexer,
	search Searcher,
	embed domain.Embedder,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		indexer: indexer,
		search:  search,
		embed:   embed,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusInternalServerError),
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest),
		sentinelHandler(domain.ErrInvalidKind, http.StatusBadRequest),
	}
	return s
}

// Routes registers every endpoint on r. Each kind gets literal paths so that
// route-pattern metrics stay per kind.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/stats", s.Stats)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/embedding", s.Embedding)
	r.Post("/search", s.SearchUnified)

	for _, kind := range entity.All() {
		base := "/" + kind.String()
		r.Post(base+"/index", s.Index(kind))
		r.Post(base+"/batch_index", s.BatchIndex(kind))
		r.Post(base+"/search", s.Search(kind))
		r.Post(base+"/similar", s.SimilarByID(kind))
		r.Post(base+"/delete", s.Delete(kind))
	}
	r.Post("/paper/similar_by_text", s.SimilarByText)
}

// --- Responses ---

type opResponse struct {
	Success bool         `json:"success"`
	ID      *int64       `json:"id,omitempty"`
	Indexed *int         `json:"indexed,omitempty"`
	Failed  []itemFailed `json:"failed,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type itemFailed struct {
	Index int    `json:"index"`
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

type resultsResponse struct {
	Results []map[string]any `json:"results"`
	Error   string           `json:"error,omitempty"`
}

type unifiedResponse struct {
	Papers []map[string]any `json:"papers"`
	Notes  []map[string]any `json:"notes"`
	Error  string           `json:"error,omitempty"`
}

type healthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Model   string                          `json:"model"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
	Streams map[string]string               `json:"streams,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func opFailure(msg string) any { return opResponse{Success: false, Error: msg} }

func resultsFailure(msg string) any { return resultsResponse{Results: []map[string]any{}, Error: msg} }

func unifiedFailure(msg string) any {
	return unifiedResponse{Papers: []map[string]any{}, Notes: []map[string]any{}, Error: msg}
}

func plainFailure(msg string) any { return errorResponse{Error: msg} }

const msgInvalidBody = "invalid request body"

// --- Handlers ---

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  report.Status,
		Model:   report.Model,
		Checks:  report.Checks,
		Streams: report.Streams,
	})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.search.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err, plainFailure)
		return
	}

	resp := make(map[string]map[string]int, len(counts))
	for _, kind := range entity.All() {
		resp[kind.Plural()] = map[string]int{"row_count": counts[kind]}
	}
	writeJSON(w, http.StatusOK, resp)
}

type embeddingRequest struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Vector    []float32 `json:"vector"`
	Dimension int       `json:"dimension"`
}

// Embedding handles POST /embedding.
func (s *Server) Embedding(w http.ResponseWriter, r *http.Request) {
	var req embeddingRequest
	if !decodeBody(w, r, &req, plainFailure) {
		return
	}

	res, err := s.embed.Embed(r.Context(), req.Text)
	if err != nil {
		s.handleDomainError(w, r, err, plainFailure)
		return
	}
	writeJSON(w, http.StatusOK, embeddingResponse{Vector: res.Embedding, Dimension: len(res.Embedding)})
}

// Index handles POST /{kind}/index.
func (s *Server) Index(kind entity.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw json.RawMessage
		if !decodeBody(w, r, &raw, opFailure) {
			return
		}
		doc, err := decodeSource(kind, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, opFailure(msgInvalidBody))
			return
		}
		id := doc.EntityID()
		if id == 0 {
			writeJSON(w, http.StatusBadRequest, opFailure("id is required"))
			return
		}

		if err := s.indexer.Index(r.Context(), doc); err != nil {
			s.handleDomainError(w, r, err, opFailure)
			return
		}
		writeJSON(w, http.StatusOK, opResponse{Success: true, ID: &id})
	}
}

// BatchIndex handles POST /{kind}/batch_index. The body holds the items
// under the kind's plural name, e.g. {"papers": [...]}.
func (s *Server) BatchIndex(kind entity.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		if !decodeBody(w, r, &body, opFailure) {
			return
		}

		var items []json.RawMessage
		if raw, ok := body[kind.Plural()]; ok {
			if err := json.Unmarshal(raw, &items); err != nil {
				writeJSON(w, http.StatusBadRequest, opFailure(msgInvalidBody))
				return
			}
		}

		// Items that do not decode fail on their own; positions keeps the
		// original index of every decoded item.
		results := make([]dombatch.Result, len(items))
		docs := make([]document.Source, 0, len(items))
		positions := make([]int, 0, len(items))
		for i, item := range items {
			doc, err := decodeSource(kind, item)
			if err != nil {
				results[i] = dombatch.NewError(rawID(item), domain.ErrInvalidDocument)
				continue
			}
			docs = append(docs, doc)
			positions = append(positions, i)
		}

		indexed, done := s.indexer.BatchIndex(r.Context(), docs)
		if len(done) > 0 && errors.Is(done[0].Err(), indexinguc.ErrBatchTooLarge) {
			writeJSON(w, http.StatusBadRequest, opFailure(done[0].Err().Error()))
			return
		}
		for j, res := range done {
			results[positions[j]] = res
		}

		resp := opResponse{Success: true, Indexed: &indexed}
		for i, res := range results {
			if res.Status() != dombatch.StatusError {
				continue
			}
			s.log(r).Warn("batch item failed",
				zap.String("kind", kind.String()), zap.Int64("id", res.ID()), zap.Error(res.Err()))
			resp.Failed = append(resp.Failed, itemFailed{Index: i, ID: res.ID(), Error: safeDomainMessage(res.Err())})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
	Type  string `json:"type"`
}

// Search handles POST /{kind}/search.
func (s *Server) Search(kind entity.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if !decodeBody(w, r, &req, resultsFailure) {
			return
		}

		hits, err := s.search.Search(r.Context(), kind, req.Query, req.TopK)
		if err != nil {
			s.handleDomainError(w, r, err, resultsFailure)
			return
		}
		writeJSON(w, http.StatusOK, resultsResponse{Results: presentResults(hits)})
	}
}

// SearchUnified handles POST /search.
func (s *Server) SearchUnified(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req, unifiedFailure) {
		return
	}

	res, err := s.search.SearchUnified(r.Context(), req.Query, req.TopK, request.ParseScope(req.Type))
	if err != nil {
		s.handleDomainError(w, r, err, unifiedFailure)
		return
	}
	writeJSON(w, http.StatusOK, unifiedResponse{
		Papers: presentResults(res.Papers),
		Notes:  presentResults(res.Notes),
	})
}

type similarRequest struct {
	ID      *int64 `json:"id"`
	PaperID *int64 `json:"paperId"`
	TopK    int    `json:"topK"`
}

// SimilarByID handles POST /{kind}/similar. Papers are addressed by
// "paperId", other kinds by "id". An unindexed id is reported in the body
// with status 200, distinct from an empty result.
func (s *Server) SimilarByID(kind entity.Kind) http.HandlerFunc {
	idField := "id"
	if kind == entity.Paper {
		idField = "paperId"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req similarRequest
		if !decodeBody(w, r, &req, resultsFailure) {
			return
		}
		id := req.ID
		if kind == entity.Paper {
			id = req.PaperID
		}
		if id == nil || *id == 0 {
			writeJSON(w, http.StatusOK, resultsFailure(idField+" is required"))
			return
		}

		hits, err := s.search.SimilarByID(r.Context(), kind, *id, req.TopK)
		if errors.Is(err, domain.ErrNotIndexed) {
			writeJSON(w, http.StatusOK, resultsFailure(kind.String()+" not indexed"))
			return
		}
		if err != nil {
			s.handleDomainError(w, r, err, resultsFailure)
			return
		}
		writeJSON(w, http.StatusOK, resultsResponse{Results: presentResults(hits)})
	}
}

type similarByTextRequest struct {
	Title        string              `json:"title"`
	AbstractText string              `json:"abstractText"`
	Keywords     document.StringList `json:"keywords"`
	ExcludeID    *int64              `json:"excludeId"`
	TopK         int                 `json:"topK"`
}

// SimilarByText handles POST /paper/similar_by_text.
func (s *Server) SimilarByText(w http.ResponseWriter, r *http.Request) {
	var req similarByTextRequest
	if !decodeBody(w, r, &req, resultsFailure) {
		return
	}

	var exclude int64
	if req.ExcludeID != nil {
		exclude = *req.ExcludeID
	}
	probe := document.Paper{Title: req.Title, AbstractText: req.AbstractText, Keywords: req.Keywords}

	hits, err := s.search.SimilarByText(r.Context(), probe, exclude, req.TopK)
	if err != nil {
		s.handleDomainError(w, r, err, resultsFailure)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Results: presentResults(hits)})
}

type deleteRequest struct {
	ID *int64 `json:"id"`
}

// Delete handles POST /{kind}/delete. A missing id is a no-op success.
func (s *Server) Delete(kind entity.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if !decodeBody(w, r, &req, opFailure) {
			return
		}
		if req.ID == nil {
			writeJSON(w, http.StatusOK, opResponse{Success: true})
			return
		}

		if err := s.indexer.Remove(r.Context(), kind, *req.ID); err != nil {
			s.handleDomainError(w, r, err, opFailure)
			return
		}
		writeJSON(w, http.StatusOK, opResponse{Success: true})
	}
}

// --- Helpers ---

// writeJSON encodes v before sending the header, so an unencodable value
// becomes a 500 with a JSON error body instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// decodeBody decodes the request body into v. On failure it writes a 400 in
// the endpoint's shape and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, shape failure) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, shape(msgInvalidBody))
		return false
	}
	return true
}

// rawID extracts the id of an item that failed to decode, or 0 when the id
// itself is unreadable.
func rawID(raw json.RawMessage) int64 {
	var item struct {
		ID int64 `json:"id"`
	}
	if json.Unmarshal(raw, &item) != nil {
		return 0
	}
	return item.ID
}

// decodeSource decodes the payload of one entity.
func decodeSource(kind entity.Kind, raw json.RawMessage) (document.Source, error) {
	switch kind {
	case entity.Paper:
		var d document.Paper
		err := json.Unmarshal(raw, &d)
		return d, err
	case entity.Note:
		var d document.Note
		err := json.Unmarshal(raw, &d)
		return d, err
	case entity.Mentor:
		var d document.Mentor
		err := json.Unmarshal(raw, &d)
		return d, err
	case entity.Student:
		var d document.Student
		err := json.Unmarshal(raw, &d)
		return d, err
	}
	return nil, domain.ErrInvalidKind
}

func presentResults(hits []result.Result) []map[string]any {
	out := make([]map[string]any, 0, len(hits))
	for i := range hits {
		h := &hits[i]
		if math.IsNaN(h.Score()) || math.IsInf(h.Score(), 0) {
			continue
		}
		item := document.Present(h.Kind(), h.Attributes())
		item["id"] = h.ID()
		item["score"] = h.Score()
		out = append(out, item)
	}
	return out
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotIndexed,
		domain.ErrEmbeddingProviderError,
		domain.ErrBackendUnavailable,
		domain.ErrVectorDimMismatch,
		domain.ErrInvalidDocument,
		domain.ErrInvalidKind,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(err error) (int, string, bool) {
		if !errors.Is(err, sentinel) {
			return 0, "", false
		}
		return status, sentinel.Error(), true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error, shape failure) {
	log := s.log(r)
	for _, h := range s.errorHandlers {
		if status, msg, ok := h(err); ok {
			log.Warn("domain error", zap.Error(err), zap.Int("status", status))
			writeJSON(w, status, shape(msg))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, shape("internal error"))
}

// log returns the request-scoped logger, or the server logger outside the middleware chain.
func (s *Server) log(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}
