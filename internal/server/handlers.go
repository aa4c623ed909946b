package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Sternrassler/cache-inspector/pkg/analysis"
	"github.com/Sternrassler/cache-inspector/pkg/inspect"
	"github.com/Sternrassler/cache-inspector/pkg/run"
	"github.com/Sternrassler/cache-inspector/pkg/store"
)

// reportCacheControl marks report responses as cacheable forever.
const reportCacheControl = "public, max-age=31536000, immutable"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// InspectRequest is the body of POST /api/inspect-url.
type InspectRequest struct {
	URL             string `json:"url"`
	CurrentReportID string `json:"currentReportId,omitempty"`
}

// RunResponse is a run together with its analysis. Exactly one of Analysis
// and AnalysisError is set.
type RunResponse struct {
	*run.Run
	Analysis      *analysis.Analysis `json:"analysis,omitempty"`
	AnalysisError string             `json:"analysisError,omitempty"`
}

// ReportResponse is a report with its runs resolved.
type ReportResponse struct {
	ReportID  string        `json:"reportId"`
	CreatedAt time.Time     `json:"createdAt"`
	Runs      []RunResponse `json:"runs"`
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Headers map[string]string `json:"headers"`
	Now     *time.Time        `json:"now,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Store not reachable")
		writeError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleInspectAndSave inspects a URL, stores the run and files it under a
// report, creating the report when the client has none yet.
func (s *Server) handleInspectAndSave(w http.ResponseWriter, r *http.Request) {
	var req InspectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "Please provide a URL to inspect")
		return
	}
	if !s.allow(w, r) {
		return
	}

	result, ok := s.inspect(w, r, req.URL)
	if !ok {
		return
	}

	ctx := r.Context()
	reportID, err := s.fileRun(ctx, result, req.CurrentReportID)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", result.RunID).Msg("Failed to save run")
		writeError(w, http.StatusInternalServerError, "Failed to save run")
		return
	}

	s.logger.Info().
		Str("run_id", result.RunID).
		Str("report_id", reportID).
		Str("url", result.URL).
		Msg("Run saved")

	writeJSON(w, http.StatusOK, s.analyzeRun(result))
}

// fileRun saves r and attaches it to reportID, or to a new report when
// reportID is empty or unknown. It returns the report id used.
func (s *Server) fileRun(ctx context.Context, r *run.Run, reportID string) (string, error) {
	if reportID != "" {
		if _, err := s.store.GetReport(ctx, reportID); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return "", err
			}
			s.logger.Info().Str("report_id", reportID).Msg("Unknown report, starting a new one")
			reportID = ""
		}
	}

	if reportID != "" {
		r.ReportID = reportID
		if err := s.store.SaveRun(ctx, r); err != nil {
			return "", err
		}
		return reportID, s.store.AddRunToReport(ctx, reportID, r.RunID)
	}

	report := run.NewReport(r.CreatedAt)
	report.RunIDs = append(report.RunIDs, r.RunID)
	r.ReportID = report.ReportID
	if err := s.store.SaveRun(ctx, r); err != nil {
		return "", err
	}
	return report.ReportID, s.store.CreateReport(ctx, report)
}

// handleInspect inspects the URL in the path without storing anything.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	raw, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || raw == "" {
		writeError(w, http.StatusBadRequest, "Please provide a URL to inspect")
		return
	}
	if !s.allow(w, r) {
		return
	}

	result, ok := s.inspect(w, r, raw)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.analyzeRun(result))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "Missing runId parameter")
		return
	}

	result, err := s.store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to fetch run")
		writeError(w, http.StatusInternalServerError, "Failed to fetch run")
		return
	}

	writeJSON(w, http.StatusOK, s.analyzeRun(result))
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportId")
	if reportID == "" {
		writeError(w, http.StatusBadRequest, "Missing reportId parameter")
		return
	}

	ctx := r.Context()
	report, err := s.store.GetReport(ctx, reportID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", reportID).Msg("Failed to fetch report")
		writeError(w, http.StatusInternalServerError, "Failed to fetch report")
		return
	}

	resp := ReportResponse{
		ReportID:  report.ReportID,
		CreatedAt: report.CreatedAt,
		Runs:      make([]RunResponse, 0, len(report.RunIDs)),
	}
	for _, runID := range report.RunIDs {
		result, err := s.store.GetRun(ctx, runID)
		if err != nil {
			s.logger.Error().Err(err).
				Str("report_id", reportID).
				Str("run_id", runID).
				Msg("Failed to fetch report run")
			writeError(w, http.StatusInternalServerError, "Failed to fetch report")
			return
		}
		resp.Runs = append(resp.Runs, s.analyzeRun(result))
	}

	w.Header().Set("Cache-Control", reportCacheControl)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := s.now()
	if req.Now != nil {
		now = *req.Now
	}

	a, err := analysis.AnalyzeMap(req.Headers, now)
	if err != nil {
		if errors.Is(err, analysis.ErrUndeterminedServedBy) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysesTotal.WithLabelValues(string(a.ServedBy.Source)).Inc()
	writeJSON(w, http.StatusOK, a)
}

// allow applies the per-client rate limit. It writes the 429 response and
// returns false when the client is over its budget.
func (s *Server) allow(w http.ResponseWriter, r *http.Request) bool {
	state, ok, err := s.limiter.Allow(r.Context(), clientKey(r))
	if err != nil {
		// fail open: a broken limiter must not take the API down
		s.logger.Warn().Err(err).Msg("Rate limit check failed")
		return true
	}
	if ok {
		return true
	}

	w.Header().Set("Retry-After", strconv.Itoa(state.RetryAfterSeconds(s.now())))
	writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
	return false
}

// inspect runs the inspector and maps its failures to responses.
func (s *Server) inspect(w http.ResponseWriter, r *http.Request, rawURL string) (*run.Run, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), s.inspectTimeout)
	defer cancel()

	result, err := s.inspector.Inspect(ctx, rawURL)
	if err == nil {
		return result, true
	}

	switch inspect.ClassOf(err) {
	case inspect.ErrorClassInvalidURL:
		writeError(w, http.StatusBadRequest, "Invalid URL provided: "+rawURL)
	case inspect.ErrorClassNotNetlify:
		writeError(w, http.StatusBadRequest, "This tool can only be used with Netlify sites")
	default:
		s.logger.Warn().Err(err).
			Str("url", rawURL).
			Str("error_class", string(inspect.ClassOf(err))).
			Msg("Inspection failed")
		writeError(w, http.StatusBadGateway, "Failed to fetch "+rawURL)
	}
	return nil, false
}

// analyzeRun attaches the analysis of a run, evaluated at the time of the run.
func (s *Server) analyzeRun(r *run.Run) RunResponse {
	resp := RunResponse{Run: r}
	a, err := analysis.AnalyzeMap(r.Headers, r.CreatedAt)
	if err != nil {
		s.logger.Warn().Err(err).Str("run_id", r.RunID).Msg("Could not analyze run")
		resp.AnalysisError = err.Error()
		return resp
	}

	analysesTotal.WithLabelValues(string(a.ServedBy.Source)).Inc()
	s.logger.Debug().
		Str("run_id", r.RunID).
		Str("served_by", string(a.ServedBy.Source)).
		Msg("Run analyzed")
	resp.Analysis = a
	return resp
}

// clientKey identifies the caller for rate limiting. RealIP has already
// replaced RemoteAddr with the forwarded address when there is one.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{StatusCode: status, Message: message})
}
