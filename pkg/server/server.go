// Package server exposes the parse pipeline and export serializer over HTTP.
// It implements the upload and export boundary: files are rejected before
// parsing when their extension is unsupported, parsed documents are published
// to a shared collection with replace-by-filename semantics, and exports are
// produced on demand from the current document list.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/baukit/gaebconv/pkg/boq"
	"github.com/baukit/gaebconv/pkg/export"
	"github.com/baukit/gaebconv/pkg/ingest"
)

// maxUploadBytes caps a single uploaded file.
const maxUploadBytes = 32 << 20

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	pipeline *ingest.Pipeline
	exporter *export.Exporter
	docs     *boq.Collection
	log      *zap.Logger
	opts     export.Options
}

// NewServer creates and wires the HTTP server.
func NewServer(pipeline *ingest.Pipeline, docs *boq.Collection, opts export.Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		pipeline: pipeline,
		exporter: export.NewExporter(log),
		docs:     docs,
		log:      log,
		opts:     opts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/documents", s.handleUpload)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{name}", s.handleGetDocument)
		r.Delete("/documents/{name}", s.handleDeleteDocument)
		r.Get("/export/xlsx", s.handleExportXLSX)
		r.Get("/export/csv", s.handleExportCSV)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// documentSummary is the list-view projection of a parsed document.
type documentSummary struct {
	FileName       string    `json:"file_name"`
	DetectedFormat string    `json:"detected_format"`
	Categories     int       `json:"categories"`
	Positions      int       `json:"positions"`
	TotalPositions int       `json:"total_positions"`
	ProcessedAt    time.Time `json:"processed_at"`
}

func summarize(doc *boq.ParsedDocument) documentSummary {
	return documentSummary{
		FileName:       doc.FileName,
		DetectedFormat: string(doc.Header.DetectedFormat),
		Categories:     doc.CountByType(boq.NodeTitle),
		Positions:      doc.CountByType(boq.NodePosition),
		TotalPositions: doc.TotalPositions,
		ProcessedAt:    doc.ProcessedAt,
	}
}

// handleUpload accepts one multipart file, gates it by extension, parses it
// and publishes the result. Re-uploading a known file name replaces the
// prior document.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("missing file field: %v", err))
		return
	}
	defer file.Close()

	name := fileHeader.Filename
	if !ingest.IsSupported(name) {
		s.writeError(w, http.StatusUnsupportedMediaType, "unsupported file extension")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("reading upload: %v", err))
		return
	}
	text, err := ingest.DecodeText(data)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("decoding upload: %v", err))
		return
	}

	doc := s.pipeline.Parse(text, name)
	s.docs.Put(doc)

	s.writeJSON(w, http.StatusCreated, summarize(doc))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.docs.Documents()
	summaries := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, summarize(doc))
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc := s.docs.Get(name)
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.docs.Remove(name) {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	docs := s.docs.Documents()
	if len(docs) == 0 {
		s.writeError(w, http.StatusConflict, "no documents to export")
		return
	}

	f, err := s.exporter.WriteWorkbook(docs, s.opts)
	if err != nil {
		s.log.Error("workbook export failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	defer f.Close()

	name := export.ExportFileName(s.opts.Stem, "xlsx", time.Now())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := f.Write(w); err != nil {
		s.log.Error("writing workbook response", zap.Error(err))
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	docs := s.docs.Documents()
	if len(docs) == 0 {
		s.writeError(w, http.StatusConflict, "no documents to export")
		return
	}

	name := export.ExportFileName(s.opts.Stem, "csv", time.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := s.exporter.WriteCSV(w, docs, s.opts); err != nil {
		s.log.Error("csv export failed", zap.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
