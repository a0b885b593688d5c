// Package server exposes the voice-command engine over HTTP.
//
// The API surface is small and register-facing:
//
//   - POST /v1/voice/parse      — rule-based transcript resolution
//   - POST /v1/voice/parse-llm  — LLM-assisted transcript resolution
//   - POST /v1/voice/transcribe — speech-to-text for an uploaded audio clip
//   - GET  /healthz, /readyz    — liveness and readiness probes
//   - GET  /metrics             — Prometheus scrape endpoint
//
// Handlers translate between the JSON wire format and the engine's typed
// results; all resolution logic lives in the resolver package.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dquispe/ventavoz/internal/observe"
	"github.com/dquispe/ventavoz/internal/voice/resolver"
	"github.com/dquispe/ventavoz/pkg/provider/stt"
	"github.com/dquispe/ventavoz/pkg/types"
)

// defaultMaxAudioBytes caps transcription uploads. A one-minute bodega
// command in webm/opus is well under a megabyte.
const defaultMaxAudioBytes = 16 << 20

// Resolver is the engine surface the HTTP layer depends on. Satisfied by
// [resolver.Resolver].
type Resolver interface {
	Resolve(ctx context.Context, storeID int64, transcript string) (*types.Resolution, error)
	ResolveLLM(ctx context.Context, storeID int64, transcript string) (*types.Resolution, error)
}

// Option is a functional option for [New].
type Option func(*Server)

// WithSTT enables the /v1/voice/transcribe endpoint using the given provider.
func WithSTT(p stt.Provider) Option {
	return func(s *Server) { s.stt = p }
}

// WithMetrics replaces the default metrics instance. Tests use this to avoid
// polluting the global meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithChecker registers an additional readiness check.
func WithChecker(c Checker) Option {
	return func(s *Server) { s.checkers = append(s.checkers, c) }
}

// WithMaxAudioBytes overrides the transcription upload size limit.
func WithMaxAudioBytes(n int64) Option {
	return func(s *Server) { s.maxAudioBytes = n }
}

// Server holds the HTTP handler state. Safe for concurrent use.
type Server struct {
	resolver      Resolver
	stt           stt.Provider
	metrics       *observe.Metrics
	log           *slog.Logger
	checkers      []Checker
	maxAudioBytes int64
}

// New creates a Server around the given resolver.
func New(r Resolver, opts ...Option) (*Server, error) {
	if r == nil {
		return nil, fmt.Errorf("server: resolver must not be nil")
	}
	s := &Server{
		resolver:      r,
		log:           slog.Default(),
		maxAudioBytes: defaultMaxAudioBytes,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s, nil
}

// Routes returns the full handler tree with observability middleware applied
// to the API endpoints. Probe and scrape endpoints are served unwrapped so
// they stay out of the request metrics.
func (s *Server) Routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/voice/parse", s.handleParse)
	api.HandleFunc("POST /v1/voice/parse-llm", s.handleParseLLM)
	api.HandleFunc("POST /v1/voice/transcribe", s.handleTranscribe)

	root := http.NewServeMux()
	root.Handle("/v1/", observe.Middleware(s.metrics)(api))
	root.HandleFunc("GET /healthz", s.handleHealthz)
	root.HandleFunc("GET /readyz", s.handleReadyz)
	root.Handle("GET /metrics", promhttp.Handler())
	return root
}

// handleParse resolves a transcript through the rule-based pipeline.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeParseRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	s.metrics.ActiveRequests.Add(ctx, 1)
	defer s.metrics.ActiveRequests.Add(ctx, -1)

	start := time.Now()
	res, err := s.resolver.Resolve(ctx, req.StoreID, req.Transcript)
	if err != nil {
		s.log.Error("resolve failed", "store_id", req.StoreID, "err", err)
		writeError(w, http.StatusBadGateway, "resolution failed")
		return
	}
	s.recordResolution(ctx, res, "rule", time.Since(start))

	writeJSON(w, http.StatusOK, newResolutionResponse(res))
}

// handleParseLLM resolves a transcript with LLM-assisted item extraction.
func (s *Server) handleParseLLM(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeParseRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	s.metrics.ActiveRequests.Add(ctx, 1)
	defer s.metrics.ActiveRequests.Add(ctx, -1)

	start := time.Now()
	res, err := s.resolver.ResolveLLM(ctx, req.StoreID, req.Transcript)
	if err != nil {
		if errors.Is(err, resolver.ErrNoExtractor) {
			writeError(w, http.StatusNotImplemented, "no LLM provider configured")
			return
		}
		s.log.Error("llm resolve failed", "store_id", req.StoreID, "err", err)
		writeError(w, http.StatusBadGateway, "resolution failed")
		return
	}
	s.metrics.LLMDuration.Record(ctx, res.Timing.LLM.Seconds())
	s.recordResolution(ctx, res, "llm", time.Since(start))

	writeJSON(w, http.StatusOK, newResolutionResponse(res))
}

// handleTranscribe accepts a multipart audio upload and returns its
// transcript. The form field must be named "audio"; optional "language" and
// "prompt" fields are forwarded to the provider.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.stt == nil {
		writeError(w, http.StatusNotImplemented, "no STT provider configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxAudioBytes)
	if err := r.ParseMultipartForm(s.maxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, `missing "audio" form file`)
		return
	}
	defer file.Close()

	ctx := r.Context()
	start := time.Now()
	transcript, err := s.stt.Transcribe(ctx, stt.Request{
		Audio:    file,
		Filename: header.Filename,
		Language: r.FormValue("language"),
		Prompt:   r.FormValue("prompt"),
	})
	if err != nil || transcript == nil {
		s.metrics.RecordProviderError(ctx, "stt", "transcribe")
		s.log.Error("transcription failed", "filename", header.Filename, "err", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	s.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.RecordProviderRequest(ctx, "stt", "transcribe", "ok")

	writeJSON(w, http.StatusOK, transcribeResponse{Text: transcript.Text})
}

// decodeParseRequest reads and validates the shared request body of both
// parse endpoints. On failure it writes the error response and returns false.
func (s *Server) decodeParseRequest(w http.ResponseWriter, r *http.Request) (parseRequest, bool) {
	var req parseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if req.Transcript == "" {
		writeError(w, http.StatusBadRequest, "transcript must not be empty")
		return req, false
	}
	if req.StoreID <= 0 {
		writeError(w, http.StatusBadRequest, "store_id must be positive")
		return req, false
	}
	return req, true
}

// recordResolution updates the command and outcome metrics for one finished
// resolution.
func (s *Server) recordResolution(ctx context.Context, res *types.Resolution, path string, elapsed time.Duration) {
	s.metrics.ResolveDuration.Record(ctx, elapsed.Seconds())
	s.metrics.RecordCommand(ctx, string(res.Command.Type), path)
	for range res.Items {
		s.metrics.RecordMatchOutcome(ctx, string(types.MatchResolved))
	}
	for range res.Ambiguous {
		s.metrics.RecordMatchOutcome(ctx, string(types.MatchAmbiguous))
	}
	for range res.NotFound {
		s.metrics.RecordMatchOutcome(ctx, string(types.MatchNotFound))
	}
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
