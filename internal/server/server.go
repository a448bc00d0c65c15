// Package server exposes the extraction pipelines over HTTP: one multipart
// processing endpoint plus a health probe.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/pdferret/internal/config"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/ferret"
)

// extractorAPI is the facade surface the handlers need. *ferret.Ferret
// implements it; tests substitute a stub.
type extractorAPI interface {
	ExtractBatch(ctx context.Context, files []ferret.InFile, defaultLang string, opts ...ferret.CallOption) ([]*doc.Document, []*doc.ProcessingError, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger replaces the standard logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) { s.log = log }
}

// Server routes HTTP requests to the extraction facade.
type Server struct {
	ex    extractorAPI
	cfg   config.Config
	log   *logrus.Logger
	probe *http.Client
}

// New builds a Server around the extraction facade.
func New(ex extractorAPI, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		ex:    ex,
		cfg:   cfg,
		log:   logrus.StandardLogger(),
		probe: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler with request logging attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /process_files_by_stream", s.handleProcess)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.logRequests(mux)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("http server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestParams is the JSON control part of a processing request.
type requestParams struct {
	TextModel       string                    `json:"text_model"`
	VisionModel     string                    `json:"vision_model"`
	Lang            string                    `json:"lang"`
	ReturnImages    *bool                     `json:"return_images"`
	PerfileSettings map[string]perfileSetting `json:"perfile_settings"`
}

type perfileSetting struct {
	Lang          string            `json:"lang"`
	ExtraMetainfo map[string]string `json:"extra_metainfo"`
}

type processResponse struct {
	Extracted []*doc.Document        `json:"extracted"`
	Errors    []*doc.ProcessingError `json:"errors"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("multipart body required: %w", err))
		return
	}

	var (
		files  []ferret.InFile
		params requestParams
		names  = map[string]struct{}{}
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("read multipart: %w", err))
			return
		}
		switch part.FormName() {
		case "pdfs":
			data, err := io.ReadAll(part)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload %q: %w", part.FileName(), err))
				return
			}
			if name := part.FileName(); name != "" {
				names[name] = struct{}{}
			}
			files = append(files, ferret.InFile{Filename: part.FileName(), Data: data})
		case "params":
			raw, err := io.ReadAll(part)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Errorf("read params: %w", err))
				return
			}
			if err := sonic.Unmarshal(raw, &params); err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse params: %w", err))
				return
			}
		}
		part.Close()
	}

	for name := range params.PerfileSettings {
		if _, ok := names[name]; !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("perfile_settings refers to unknown file %q", name))
			return
		}
	}
	for i := range files {
		set, ok := params.PerfileSettings[files[i].Filename]
		if !ok {
			continue
		}
		files[i].Language = set.Lang
		files[i].ExtraMetainfo = set.ExtraMetainfo
	}

	lang := params.Lang
	if lang == "" {
		lang = "en"
	}

	docs, perrs, err := s.ex.ExtractBatch(r.Context(), files, lang,
		ferret.WithTextModel(params.TextModel),
		ferret.WithVisionModel(params.VisionModel),
	)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, doc.ErrDuplicateInput) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	if params.ReturnImages != nil && !*params.ReturnImages {
		scrubImages(docs)
	}

	resp := processResponse{Extracted: docs, Errors: perrs}
	if resp.Extracted == nil {
		resp.Extracted = []*doc.Document{}
	}
	if resp.Errors == nil {
		resp.Errors = []*doc.ProcessingError{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// scrubImages drops the binary payloads callers opted out of: thumbnails and
// the image bytes riding on figure and visual-page chunks. Other payloads,
// such as table HTML, stay.
func scrubImages(docs []*doc.Document) {
	for _, d := range docs {
		if d == nil {
			continue
		}
		d.MetaInfo.Thumbnail = nil
		for i := range d.Chunks {
			switch d.Chunks[i].EffectiveType() {
			case doc.ChunkFigure, doc.ChunkVisualPage:
				d.Chunks[i].NonEmbeddableContent = nil
			}
		}
	}
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// handleHealth reports liveness. Downstream services are probed in parallel
// and reported individually; an unreachable service does not fail the check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var tikaState, grobidState string

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		tikaState = s.probeService(ctx, s.cfg.TikaServerURL+"/tika")
		return nil
	})
	g.Go(func() error {
		grobidState = s.probeService(ctx, s.cfg.GrobidURL+"/api/isalive")
		return nil
	})
	g.Wait()

	s.writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Services: map[string]string{
			"tika":   tikaState,
			"grobid": grobidState,
		},
	})
}

func (s *Server) probeService(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err.Error()
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		return fmt.Sprintf("unreachable: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Sprintf("unhealthy: status %d", resp.StatusCode)
	}
	return "ok"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		s.log.WithError(err).Error("response encoding failed")
		http.Error(w, "encoding failure", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.WithError(err).WithField("status", status).Warn("request rejected")
	s.writeJSON(w, status, map[string]string{"detail": err.Error()})
}

// logRequests is the access-log middleware.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Info("request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
