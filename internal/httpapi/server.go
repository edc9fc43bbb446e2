// Package httpapi exposes upload, listing and document generation over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ragprompt/internal/domain"
	"ragprompt/internal/service"
	"ragprompt/internal/uploads"
)

const (
	maxUploadBytes  = 64 << 20
	maxRequestBytes = 1 << 20
)

// Generator is the part of the service the API calls.
type Generator interface {
	Generate(ctx context.Context, req service.Request) (service.Result, error)
}

type Server struct {
	store *uploads.Store
	gen   Generator
	log   *slog.Logger
}

func New(store *uploads.Store, gen Generator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, gen: gen, log: logger}
}

// Handler returns the routed handler with permissive CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /list-files", s.handleList)
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return cors(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr, "upload_dir", s.store.Dir())
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "No file part")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "No selected file")
		return
	}
	name, err := s.store.Save(header.Filename, file)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.log.Info("file uploaded", "file", name, "bytes", header.Size)
	writeJSON(w, http.StatusOK, map[string]string{"message": "File uploaded successfully", "filename": name})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	files, err := s.store.List()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": files})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req service.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Request must be in JSON format")
		return
	}
	if req.FileName == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "file_name is required")
		return
	}
	res, err := s.gen.Generate(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"generated_text": res.GeneratedText})
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "kind", kind, "error", err)
	}
	writeError(w, status, kind, err.Error())
}

// classify maps an error to an HTTP status and a stable kind string.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, uploads.ErrNotFound):
		return http.StatusNotFound, "file_not_found"
	case errors.Is(err, uploads.ErrInvalidName):
		return http.StatusBadRequest, "bad_request"
	}
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindNoExtractableText, domain.KindExtraction:
		return http.StatusUnprocessableEntity, string(kind)
	case domain.KindEmbedding, domain.KindIndexAllocation, domain.KindGeneration:
		return http.StatusBadGateway, string(kind)
	}
	return http.StatusInternalServerError, string(kind)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: msg}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
