package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bybunni/vector-space/internal/httputil"
	"github.com/bybunni/vector-space/internal/mapping"
	"github.com/bybunni/vector-space/internal/metrics"
	"github.com/bybunni/vector-space/internal/ned"
	"github.com/bybunni/vector-space/internal/pipeline"
	"github.com/bybunni/vector-space/internal/stats"
)

// summaryState retains the summary of the most recent successful
// conversion for the summary endpoint.
type summaryState struct {
	mu      sync.RWMutex
	summary *stats.Summary
	at      time.Time
}

func (s *summaryState) set(sum *stats.Summary, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sum
	s.at = at
}

func (s *summaryState) get() (*stats.Summary, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, s.at
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// clientError reports whether a conversion failure was caused by the
// request (bad config or bad data) rather than the server.
func clientError(err error) bool {
	var invalid *ned.InvalidSampleError
	var cfgErr *ned.ConfigError
	return errors.Is(err, ned.ErrEmptyStream) || errors.As(err, &invalid) || errors.As(err, &cfgErr)
}

// handleConvert accepts a multipart upload with an "input" CSV part and an
// optional "config" YAML/JSON part, runs the conversion, archives the
// output and returns the converted CSV.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ip := httputil.ClientIP(r, s.cfg.TrustProxy)
	if !s.limiter.acquire(ip) {
		writeJSONError(w, http.StatusTooManyRequests, "too many concurrent conversions")
		return
	}
	defer s.limiter.release(ip)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("parsing upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	input, _, err := r.FormFile("input")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing \"input\" file")
		return
	}
	defer input.Close()

	cfg := &mapping.Config{}
	if cf, _, err := r.FormFile("config"); err == nil {
		data, err := io.ReadAll(cf)
		cf.Close()
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("reading config: %v", err))
			return
		}
		cfg, err = mapping.Parse(data)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	start := time.Now()
	var out bytes.Buffer
	result, err := pipeline.Convert(r.Context(), input, &out, pipeline.Options{
		Config:  cfg,
		Workers: s.cfg.Workers,
		Logger:  s.logger,
	})
	rows := 0
	if result != nil {
		rows = result.Rows
	}
	metrics.RecordConversion(time.Since(start), rows, err)
	if err != nil {
		s.logger.Warn("conversion failed", "component", "api", "remote_ip", ip, "error", err)
		code := http.StatusInternalServerError
		if clientError(err) {
			code = http.StatusBadRequest
		}
		writeJSONError(w, code, err.Error())
		return
	}

	now := time.Now()
	if err := s.arch.Write(out.Bytes(), now); err != nil {
		// The conversion itself succeeded; archiving is best effort.
		s.logger.Warn("archiving converted output failed", "component", "api", "error", err)
	}

	if sum, err := stats.Summarize(result.Table); err != nil {
		s.logger.Debug("no summary for conversion", "component", "api", "error", err)
	} else {
		s.lastState.set(sum, now)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"converted.csv\"")
	w.WriteHeader(http.StatusOK)
	w.Write(out.Bytes())
}

// handleSummary returns the track summary of the most recent conversion.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, at := s.lastState.get()
	if sum == nil {
		writeJSONError(w, http.StatusNotFound, "no conversions yet")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		ConvertedAt string         `json:"converted_at"`
		Summary     *stats.Summary `json:"summary"`
	}{
		ConvertedAt: at.UTC().Format(time.RFC3339),
		Summary:     sum,
	})
}

// handleArchiveLatest returns the newest archived conversion output.
func (s *Server) handleArchiveLatest(w http.ResponseWriter, r *http.Request) {
	data, ts, err := s.arch.LoadLatest()
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("X-Converted-At", ts.UTC().Format(time.RFC3339))
	w.Header().Set("Content-Disposition", "attachment; filename=\"converted.csv\"")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
