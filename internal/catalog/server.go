package catalog

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/taigrr/plyview/internal/httputil"
	"github.com/taigrr/plyview/pkg/pointcloud"
	"go.uber.org/zap"
)

// Server exposes a Store over HTTP.
type Server struct {
	store *Store
	log   *zap.Logger
	mux   *http.ServeMux
}

// NewServer creates a server for store.
func NewServer(store *Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{store: store, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleHealth)
	s.mux.HandleFunc("/api/list-models", s.handleListModels)
	s.mux.HandleFunc("/api/get-model", s.handleGetModel)
	s.mux.HandleFunc("/api/storage-info", s.handleStorageInfo)
	return s
}

// ServeHTTP logs each request and dispatches it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("took", time.Since(start)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"service": "plyview catalog",
	})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	models, err := s.store.List()
	if err != nil {
		s.log.Error("list models failed", zap.Error(err))
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, ListResponse{Success: true, Models: models, Count: len(models)})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		httputil.BadRequest(w, "fileId parameter required")
		return
	}

	path, err := s.store.Lookup(fileID, r.URL.Query().Get("name"))
	if errors.Is(err, ErrNotFound) {
		httputil.NotFound(w, "model not found")
		return
	}
	if err != nil {
		s.log.Error("lookup failed", zap.String("fileId", fileID), zap.Error(err))
		httputil.InternalServerError(w, err.Error())
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.log.Error("open model failed", zap.String("path", path), zap.Error(err))
		httputil.InternalServerError(w, "could not open model")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		httputil.InternalServerError(w, "could not stat model")
		return
	}

	contentType := "text/plain; charset=utf-8"
	if h, err := pointcloud.ReadHeader(f); err == nil && h.Format != "" && h.Format != pointcloud.FormatASCII {
		contentType = "application/octet-stream"
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		httputil.InternalServerError(w, "could not read model")
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) handleStorageInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	info, err := s.store.Info()
	if err != nil {
		s.log.Error("storage info failed", zap.Error(err))
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, StorageResponse{Success: true, Storage: &info})
}
