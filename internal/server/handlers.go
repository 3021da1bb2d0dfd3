package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leefowlercu/batch-monitor/internal/export"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

// maxBodyBytes caps JSON request bodies on the job API.
const maxBodyBytes = 64 << 10

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivezResponse{Status: "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := ReadyzResponse{
		Status:  "ready",
		Ready:   true,
		Backend: s.backend,
		Uptime:  time.Since(s.started),
	}

	err := s.registry.Store().Ping(ctx)
	if s.reportStoreUp != nil {
		s.reportStoreUp(s.backend, err == nil)
	}

	if err != nil {
		s.logger.Warn("readiness check failed", "backend", s.backend, "error", err)
		resp.Status = "unavailable"
		resp.Ready = false
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req StartJobRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.registry.Start(r.Context(), req.Name)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	w.Header().Set("Location", "/jobs/"+rec.ID)
	writeJSON(w, http.StatusCreated, NewJobResponse(rec))
}

func (s *Server) handleEndJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EndJobRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := jobs.ParseStatus(req.Status)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.registry.End(r.Context(), id, status)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewJobResponse(rec))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	rec, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewJobResponse(rec))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := jobs.ListOptions{
		Name:       q.Get("name"),
		Descending: true,
	}

	if v := q.Get("status"); v != "" {
		status, err := jobs.ParseStatus(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Status = status
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		opts.Limit = n
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid since %q; expected RFC3339", v))
			return
		}
		opts.Since = since
	}

	recs, err := s.registry.List(r.Context(), opts)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	resp := ListJobsResponse{
		Jobs:  make([]JobResponse, 0, len(recs)),
		Count: len(recs),
	}
	for _, rec := range recs {
		resp.Jobs = append(resp.Jobs, NewJobResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := s.getExportDefaults()

	if v := q.Get("format"); v != "" {
		opts.Format = v
	}
	formatter, ok := s.exporter.Formatter(opts.Format)
	if !ok {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown format %q; available: %v", opts.Format, s.exporter.ListFormats()))
		return
	}

	if v := q.Get("include_running"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid include_running %q", v))
			return
		}
		opts.IncludeRunning = b
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		opts.Limit = n
	}

	opts.Name = q.Get("name")

	output, stats, err := s.exporter.Export(r.Context(), opts)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	s.logger.Debug("served export",
		"format", stats.Format,
		"jobs", stats.JobCount,
		"bytes", stats.OutputSize,
		"duration", stats.Duration,
	)

	w.Header().Set("Content-Type", formatter.ContentType())
	w.Header().Set("X-Job-Count", strconv.Itoa(stats.JobCount))
	w.WriteHeader(http.StatusOK)
	w.Write(output)
}

// writeRegistryError maps registry errors onto HTTP status codes.
func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("job api request failed", "error", err)
	}
	writeJSONError(w, status, err.Error())
}

// StatusForError returns the HTTP status code reported for a registry error.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, jobs.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrAlreadyFinished):
		return http.StatusConflict
	case errors.Is(err, jobs.ErrInvalidStatus), errors.Is(err, jobs.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case jobs.IsStoreError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body; %w", err)
	}
	return nil
}

// ExportOptionsFromDefaults adapts configured export defaults for the server.
func ExportOptionsFromDefaults(format string, limit int) export.ExportOptions {
	opts := export.DefaultExportOptions()
	if format != "" {
		opts.Format = format
	}
	if limit != 0 {
		opts.Limit = limit
	}
	return opts
}
