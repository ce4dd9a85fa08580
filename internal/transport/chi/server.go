package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
	retrievaluc "github.com/Lbridge2222/bridge-fullstack-sub000/internal/usecase/retrieval"
)

// Error response codes.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeValidationFailed = "validation_failed"
	codeInternalError    = "internal_error"
)

// pinger reports store liveness for the health endpoint.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the retrieval engine over HTTP.
type Server struct {
	retrieval *retrievaluc.Service
	store     pinger
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(retrieval *retrievaluc.Service, store pinger, logger *zap.Logger) *Server {
	return &Server{
		retrieval: retrieval,
		store:     store,
		logger:    logger,
	}
}

// Routes mounts the API onto a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/retrieve", s.Retrieve)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type subjectContext struct {
	Name   string `json:"name,omitempty"`
	Course string `json:"course,omitempty"`
	Campus string `json:"campus,omitempty"`
}

type retrieveRequest struct {
	Query      string          `json:"query"`
	DocTypes   []string        `json:"doc_types,omitempty"`
	Categories []string        `json:"categories,omitempty"`
	Threshold  float64         `json:"threshold,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Context    *subjectContext `json:"context,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
}

type resultItem struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Content         string  `json:"content"`
	DocType         string  `json:"doc_type,omitempty"`
	Category        string  `json:"category,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
	Source          string  `json:"source"`
}

type retrieveResponse struct {
	Results       []resultItem `json:"results"`
	Confidence    float64      `json:"confidence"`
	CacheHit      bool         `json:"cache_hit"`
	ExpansionUsed bool         `json:"expansion_used"`
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	hints := domain.SubjectHints{}
	if req.Context != nil {
		hints = domain.SubjectHints{
			Name:   req.Context.Name,
			Course: req.Context.Course,
			Campus: req.Context.Campus,
		}
	}

	q, err := domain.NewQuery(
		req.Query, req.DocTypes, req.Categories,
		req.Threshold, req.Limit, hints, req.SessionID,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	out := s.retrieval.Retrieve(r.Context(), q)

	items := make([]resultItem, len(out.Results))
	for i, c := range out.Results {
		items[i] = resultItem{
			ID:              c.ID,
			Title:           c.Title,
			Content:         c.Content,
			DocType:         c.DocType,
			Category:        c.Category,
			SimilarityScore: c.Score(),
			Source:          string(c.Source),
		}
	}

	writeJSON(w, http.StatusOK, retrieveResponse{
		Results:       items,
		Confidence:    out.Confidence,
		CacheHit:      out.CacheHit,
		ExpansionUsed: out.ExpansionUsed,
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, dbStatus := "healthy", "ok"
	httpStatus := http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		status, dbStatus = "unhealthy", "unreachable"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: status,
		Checks: map[string]string{"database": dbStatus},
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
