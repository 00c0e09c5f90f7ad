// internal/server/server.go
package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/user/photosort/internal/immich"
	"github.com/user/photosort/internal/review"
	"github.com/user/photosort/internal/types"
)

//go:embed index.html
var indexHTML []byte

const defaultHistoryLimit = 20

// Server is the HTTP front-end for the triage UI.
type Server struct {
	svc *review.Service
	mux *http.ServeMux
}

// NewServer creates a Server backed by the review service.
func NewServer(svc *review.Service) *Server {
	s := &Server{
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /cameras", s.handleCameras)
	s.mux.HandleFunc("GET /next", s.handleNext)
	s.mux.HandleFunc("GET /proxy/{id}/{size}", s.handleProxy)
	s.mux.HandleFunc("POST /action/{id}", s.handleAction)
	s.mux.HandleFunc("POST /undo/{id}", s.handleUndo)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	return s
}

// ServeHTTP delegates to the internal mux and logs each request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	level := slog.LevelDebug
	if rec.status >= http.StatusInternalServerError {
		level = slog.LevelWarn
	} else if r.URL.Path != "/health" && !strings.HasPrefix(r.URL.Path, "/proxy/") {
		level = slog.LevelInfo
	}
	slog.Log(r.Context(), level, "http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// errorResponse is the structured failure body.
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var te *immich.TransientError
	var se *immich.StatusError
	switch {
	case errors.Is(err, immich.ErrUnknownAction), errors.Is(err, immich.ErrInvalidSize):
		status = http.StatusBadRequest
	case errors.As(err, &te):
		status = http.StatusGatewayTimeout
	case errors.As(err, &se), errors.Is(err, immich.ErrMalformedResponse):
		status = http.StatusBadGateway
	case errors.Is(err, review.ErrNothingToUndo):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Type: immich.ErrorKind(err)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type camerasResponse struct {
	Cameras []string `json:"cameras"`
	Error   string   `json:"error,omitempty"`
}

func (s *Server) handleCameras(w http.ResponseWriter, r *http.Request) {
	cameras, err := s.svc.Cameras(r.Context())
	if err != nil {
		slog.Error("fetch cameras failed", "error", err)
		writeJSON(w, http.StatusOK, camerasResponse{Cameras: []string{}, Error: err.Error()})
		return
	}
	if cameras == nil {
		cameras = []string{}
	}
	writeJSON(w, http.StatusOK, camerasResponse{Cameras: cameras})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count := 1
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "count must be an integer", Type: "Error"})
			return
		}
		count = n
	}
	refine := true
	if raw := q.Get("refine"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "refine must be a boolean", Type: "Error"})
			return
		}
		refine = b
	}

	batch, err := s.svc.Next(r.Context(), review.Request{
		Count:   count,
		Cameras: review.ParseCameras(q.Get("cameras")),
		Query:   q.Get("query"),
		Refine:  refine,
	})
	if err != nil {
		slog.Error("fetch assets failed", "error", err)
		writeError(w, err)
		return
	}
	switch {
	case batch.Done:
		writeJSON(w, http.StatusOK, map[string]bool{"done": true})
	case count <= 1:
		writeJSON(w, http.StatusOK, batch.Assets[0])
	default:
		writeJSON(w, http.StatusOK, map[string][]review.Summary{"assets": batch.Assets})
	}
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	id, size := r.PathValue("id"), r.PathValue("size")
	blob, err := s.svc.Media(r.Context(), id, size)
	if err != nil {
		slog.Error("proxy media failed", "asset_id", id, "size", size, "error", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(blob.Data)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id, action := r.PathValue("id"), r.URL.Query().Get("action")
	if _, err := s.svc.Act(r.Context(), types.WebSession, id, action); err != nil {
		slog.Error("action failed", "action", action, "asset_id", id, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	id, action := r.PathValue("id"), r.URL.Query().Get("action")
	if err := s.svc.Undo(r.Context(), types.WebSession, id, action); err != nil {
		slog.Error("undo failed", "action", action, "asset_id", id, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	entries := s.svc.History(types.WebSession, limit)
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}
