// Package server exposes a workflow session over HTTP.
//
// Parameter changes are persisted in the settings store and trigger a
// render; the SVG, PNG and PDF outputs are served from the last render.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/benoitkugler/worlddots/dotgrid"
	"github.com/benoitkugler/worlddots/mask"
	"github.com/benoitkugler/worlddots/settings"
	"github.com/benoitkugler/worlddots/svgdots"
	"github.com/benoitkugler/worlddots/svgpdf"
	"github.com/benoitkugler/worlddots/svgraster"
	"github.com/benoitkugler/worlddots/workflow"
)

// Download file names.
const (
	OriginalFilename  = "world-dots.svg"
	OptimizedFilename = "world-dots-optimized.svg"
)

// maxMaskSize caps uploaded mask images.
const maxMaskSize = 32 << 20

type Server struct {
	session *workflow.Session
	store   *settings.Store
}

// NewServer returns a server driving session. Preferences are saved in store.
func NewServer(session *workflow.Session, store *settings.Store) *Server {
	return &Server{session: session, store: store}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("PUT /api/config", s.updateConfig)
	mux.HandleFunc("GET /api/panel", s.showPanel)
	mux.HandleFunc("PUT /api/panel", s.updatePanel)
	mux.HandleFunc("POST /api/mask", s.uploadMask)
	mux.HandleFunc("DELETE /api/mask", s.resetMask)
	mux.HandleFunc("PUT /api/surface", s.updateSurface)
	mux.HandleFunc("GET /api/status", s.showStatus)
	mux.HandleFunc("POST /api/optimize", s.optimize)
	mux.HandleFunc("GET /api/svg", s.downloadOriginal)
	mux.HandleFunc("GET /api/svg/optimized", s.downloadOptimized)
	mux.HandleFunc("GET /api/preview.png", s.preview)
	mux.HandleFunc("GET /api/export.pdf", s.exportPDF)
	mux.HandleFunc("GET /api/events", s.streamEvents)
	return mux
}

// sessionError maps workflow errors to a response.
func (s *Server) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrNoArtifact):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, workflow.ErrSuperseded), errors.Is(err, mask.ErrSuperseded):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrClosed):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, dotgrid.ErrInvalidConfig):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	st, err := s.session.Status(r.Context())
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Config)
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg dotgrid.Config
	if !decodeBody(w, r, &cfg) {
		return
	}
	st, err := s.session.SetConfig(r.Context(), cfg)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	if err := s.store.SaveConfig(r.Context(), cfg); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) showPanel(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.Load(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v.Panel)
}

func (s *Server) updatePanel(w http.ResponseWriter, r *http.Request) {
	var p settings.Panel
	if !decodeBody(w, r, &p) {
		return
	}
	if err := s.store.SavePanel(r.Context(), p); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// loadMask switches the session to src and waits for the decode.
func (s *Server) loadMask(w http.ResponseWriter, r *http.Request, src mask.Source) bool {
	loaded, err := s.session.SetMask(r.Context(), src)
	if err != nil {
		s.sessionError(w, err)
		return false
	}
	select {
	case err = <-loaded:
	case <-r.Context().Done():
		return false
	}
	if errors.Is(err, mask.ErrSuperseded) {
		s.sessionError(w, err)
		return false
	}
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

func (s *Server) uploadMask(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMaskSize))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if len(data) == 0 {
		writeJSONError(w, http.StatusBadRequest, "empty mask image")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	src := mask.Source{Name: name, Data: data}
	if !s.loadMask(w, r, src) {
		return
	}
	if err := s.store.SaveMask(r.Context(), src.DataURI()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.showStatus(w, r)
}

func (s *Server) resetMask(w http.ResponseWriter, r *http.Request) {
	if !s.loadMask(w, r, mask.DefaultSource()) {
		return
	}
	if err := s.store.ClearMask(r.Context()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.showStatus(w, r)
}

type surfaceRequest struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

func (s *Server) updateSurface(w http.ResponseWriter, r *http.Request) {
	req := surfaceRequest{PixelRatio: 1}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Width <= 0 || req.Height <= 0 || req.PixelRatio <= 0 {
		writeJSONError(w, http.StatusBadRequest, "width, height and pixelRatio must be positive")
		return
	}
	st, err := s.session.Resize(r.Context(), req.Width, req.Height, req.PixelRatio)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.session.Status(r.Context())
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) optimize(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.Optimize(r.Context()); err != nil {
		s.sessionError(w, err)
		return
	}
	s.showStatus(w, r)
}

// serveSVG writes text as a download, answering 304 to a matching
// If-None-Match.
func serveSVG(w http.ResponseWriter, r *http.Request, text, etag, filename string) {
	etag = strconv.Quote(etag)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", svgdots.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(text)))
	io.WriteString(w, text)
}

func (s *Server) downloadOriginal(w http.ResponseWriter, r *http.Request) {
	a, err := s.session.Artifact(r.Context())
	if err != nil {
		s.sessionError(w, err)
		return
	}
	serveSVG(w, r, a.Original, a.ID, OriginalFilename)
}

func (s *Server) downloadOptimized(w http.ResponseWriter, r *http.Request) {
	a, err := s.session.Artifact(r.Context())
	if err != nil {
		s.sessionError(w, err)
		return
	}
	if !a.IsOptimized() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	serveSVG(w, r, a.Optimized, a.ID+"-optimized", OptimizedFilename)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	a, err := s.session.Artifact(r.Context())
	if err != nil {
		s.sessionError(w, err)
		return
	}
	surface := a.Surface
	if q := r.URL.Query().Get("ratio"); q != "" {
		ratio, err := strconv.ParseFloat(q, 64)
		if err != nil || ratio <= 0 || ratio > 8 {
			writeJSONError(w, http.StatusBadRequest, "invalid 'ratio' parameter")
			return
		}
		surface.PixelRatio = ratio
	}
	var opts svgraster.Options
	if r.URL.Query().Get("mask") == "1" {
		opts.Mask = s.session.Mask()
	}
	icon, err := a.Icon()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	img := svgraster.Paint(icon, surface, a.ContainerWidth, a.ContainerHeight, opts)

	var buf bytes.Buffer
	if err := svgraster.EncodePNG(&buf, img); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("ETag", strconv.Quote(a.ID+"-"+strconv.FormatFloat(surface.Ratio(), 'f', -1, 64)))
	w.Write(buf.Bytes())
}

func (s *Server) exportPDF(w http.ResponseWriter, r *http.Request) {
	a, err := s.session.Artifact(r.Context())
	if err != nil {
		s.sessionError(w, err)
		return
	}
	icon, err := a.Icon()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := svgpdf.Write(icon, &buf); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="world-dots.pdf"`)
	w.Write(buf.Bytes())
}
