// Package server exposes the detector over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/magicscan/internal/analyzer"
	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/geom"
	"github.com/ivlev/magicscan/internal/source"
)

type Server struct {
	cfg      config.Server
	detector analyzer.Detector
	engine   string
	feedback *FeedbackStore
	log      *logrus.Entry
}

func New(cfg config.Server, det analyzer.Detector, engineName string, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		cfg:      cfg,
		detector: det,
		engine:   engineName,
		feedback: NewFeedbackStore(cfg.DatasetsDir),
		log:      log.WithField("component", "server"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/magic-scan", s.handleMagicScan)
	mux.HandleFunc("POST /tools/feedback", s.handleFeedback)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logrus.Fields{"url": "http://" + addr, "engine": s.engine}).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{StatusCode: status, Message: message})
}

func (s *Server) handleMagicScan(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		respondWithError(w, "Invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondWithError(w, "Image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	log := s.log.WithField("file", header.Filename)
	roi := s.formROI(r, log)

	img, err := source.Decode(file)
	if err != nil {
		log.WithError(err).Warn("magic scan failed")
		respondWithError(w, "Image processing failed", http.StatusInternalServerError)
		return
	}

	res, err := s.detector.Detect(img, roi)
	if err != nil {
		log.WithError(err).Error("magic scan failed")
		respondWithError(w, "Image processing failed", http.StatusInternalServerError)
		return
	}

	log.WithField("blocks", len(res.Blocks)).Debug("magic scan done")
	writeJSON(w, http.StatusCreated, res.Rects())
}

// formROI reads roiX, roiY, roiW and roiH. The region is used only when all
// four are present and numeric.
func (s *Server) formROI(r *http.Request, log *logrus.Entry) *geom.ROI {
	vals := []string{r.FormValue("roiX"), r.FormValue("roiY"), r.FormValue("roiW"), r.FormValue("roiH")}
	for _, v := range vals {
		if v == "" {
			return nil
		}
	}
	roi, err := geom.ParseROI(vals)
	if err != nil {
		log.WithError(err).Warn("ignoring region of interest")
		return nil
	}
	return roi
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var entry map[string]any
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil || entry == nil {
		respondWithError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := s.feedback.Append(entry, clientIP(r)); err != nil {
		s.log.WithError(err).Error("saving feedback failed")
		respondWithError(w, "Failed to save feedback", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": s.engine})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
