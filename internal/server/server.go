// Package server serves the palette upload form and a JSON palette API.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/config"
	"github.com/jmylchreest/swatch/internal/image"
)

// User-facing error messages.
const (
	MsgInvalidUpload = "Please upload a valid image file (png/jpg/jpeg/gif)."
	MsgUnidentified  = "Cannot identify image file. Try a different file."
	MsgTooLarge      = "Image is too large."
	MsgExtractFailed = "Could not extract a palette from this image."
)

// uploadField is the multipart field carrying the image.
const uploadField = "image"

//go:embed templates/index.html
var templateFS embed.FS

// Server handles palette upload requests.
type Server struct {
	extractor colour.Extractor
	cfg       config.ServerConfig
	logger    hclog.Logger
	tmpl      *template.Template
	mux       *http.ServeMux
}

// pageData is rendered by templates/index.html.
type pageData struct {
	Error      string
	Palette    []colour.ColorRecord
	ImageData  template.URL
	NumColors  int
	MaxColours int
}

// apiResponse is the body of a successful /api/palette call.
type apiResponse struct {
	Colors    []colour.ColorRecord `json:"colors"`
	NumColors int                  `json:"num_colors"`
}

type apiError struct {
	Error string `json:"error"`
}

// result is a processed upload.
type result struct {
	palette   []colour.ColorRecord
	preview   string
	numColors int
}

// requestError carries the status code and message shown to the client.
type requestError struct {
	status  int
	message string
	err     error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

// New creates a Server. A nil logger discards output.
func New(extractor colour.Extractor, cfg config.ServerConfig, logger hclog.Logger) (*Server, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"css": func(s string) template.CSS { return template.CSS(s) },
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
		tmpl:      tmpl,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /{$}", s.handleUpload)
	s.mux.HandleFunc("POST /api/palette", s.handleAPI)

	return s, nil
}

// Handler returns the server's HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{NumColors: s.cfg.DefaultColours})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	res, err := s.process(w, r)
	if err != nil {
		rerr := s.logError(r, err)
		s.render(w, rerr.status, pageData{Error: rerr.message, NumColors: s.cfg.DefaultColours})
		return
	}

	s.render(w, http.StatusOK, pageData{
		Palette: res.palette,
		// Generated by image.Preview, never user input.
		ImageData: template.URL(res.preview), // #nosec G203
		NumColors: res.numColors,
	})
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	res, err := s.process(w, r)
	if err != nil {
		rerr := s.logError(r, err)
		s.writeJSON(w, rerr.status, apiError{Error: rerr.message})
		return
	}

	s.writeJSON(w, http.StatusOK, apiResponse{Colors: res.palette, NumColors: res.numColors})
}

// process validates an upload and extracts its palette and preview.
func (s *Server) process(w http.ResponseWriter, r *http.Request) (*result, error) {
	if r.ContentLength > s.cfg.MaxUploadBytes {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: MsgTooLarge}
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: MsgTooLarge, err: err}
		}
		return nil, &requestError{status: http.StatusBadRequest, message: MsgInvalidUpload, err: err}
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, &requestError{status: http.StatusBadRequest, message: MsgInvalidUpload, err: err}
	}
	defer file.Close()

	if header.Filename == "" || !image.AllowedFile(header.Filename) {
		return nil, &requestError{status: http.StatusBadRequest, message: MsgInvalidUpload}
	}

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, &requestError{status: http.StatusBadRequest, message: MsgUnidentified, err: err}
	}

	count := parseColourCount(r.FormValue("num_colors"), s.cfg.DefaultColours, s.cfg.MaxColours)

	palette, err := s.extractor.Extract(img, count)
	if err != nil {
		return nil, &requestError{status: http.StatusUnprocessableEntity, message: MsgExtractFailed, err: err}
	}

	preview, err := image.Preview(img, s.cfg.PreviewDimension)
	if err != nil {
		return nil, &requestError{status: http.StatusInternalServerError, message: MsgExtractFailed, err: err}
	}

	s.logger.Debug("extracted palette",
		"file", header.Filename,
		"format", format,
		"size", header.Size,
		"colours", len(palette),
	)

	return &result{palette: palette, preview: preview, numColors: count}, nil
}

// parseColourCount parses the requested colour count. Unparseable input gives
// def; anything else is clamped to 1..upper.
func parseColourCount(v string, def, upper int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return min(max(n, 1), upper)
}

func (s *Server) logError(r *http.Request, err error) *requestError {
	var rerr *requestError
	if !errors.As(err, &rerr) {
		rerr = &requestError{status: http.StatusInternalServerError, message: MsgExtractFailed, err: err}
	}
	if rerr.status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", rerr)
	} else {
		s.logger.Warn("rejected upload", "path", r.URL.Path, "status", rerr.status, "error", rerr)
	}
	return rerr
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.MaxColours = s.cfg.MaxColours

	var buf strings.Builder
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("failed to render template", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
