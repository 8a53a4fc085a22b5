package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/JonMunkholm/cuiles/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// maxRequestBody caps the JSON body of a conversion request.
const maxRequestBody = 1 << 20

// StartResponse is returned when a conversion is accepted.
type StartResponse struct {
	JobID     string `json:"job_id"`
	Progress  string `json:"progress_url"`
	Events    string `json:"events_url"`
	ResultURL string `json:"result_url"`
}

// ResultResponse is the JSON form of a finished conversion.
type ResultResponse struct {
	JobID            string                   `json:"job_id"`
	Succeeded        bool                     `json:"succeeded"`
	Destination      string                   `json:"destination"`
	RecordsRead      int                      `json:"records_read"`
	CuilesInserted   int                      `json:"cuiles_inserted"`
	PeriodosInserted int                      `json:"periodos_inserted"`
	SkippedCount     int                      `json:"skipped_count"`
	Skipped          []pipeline.SkippedRecord `json:"skipped,omitempty"`
	DurationMS       int64                    `json:"duration_ms"`
	Error            string                   `json:"error,omitempty"`
	ErrorCode        string                   `json:"error_code,omitempty"`
}

func toResponse(res *pipeline.Result) ResultResponse {
	return ResultResponse{
		JobID:            res.JobID,
		Succeeded:        res.Succeeded(),
		Destination:      res.Destination,
		RecordsRead:      res.RecordsRead,
		CuilesInserted:   res.CuilesInserted,
		PeriodosInserted: res.PeriodosInserted,
		SkippedCount:     res.SkippedCount,
		Skipped:          res.Skipped,
		DurationMS:       res.Duration.Milliseconds(),
		Error:            res.Error,
		ErrorCode:        res.ErrorCode,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"jobs":   s.service.LimiterStatus(),
	})
}

// handleStartConversion accepts a JSON pipeline.Request and starts it in
// the background.
func (s *Server) handleStartConversion(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err))
		return
	}

	id, err := s.service.Start(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	base := "/api/conversions/" + id
	w.Header().Set("Location", base)
	writeJSON(w, r, http.StatusAccepted, StartResponse{
		JobID:     id,
		Progress:  base,
		Events:    base + "/events",
		ResultURL: base + "/result",
	})
}

func (s *Server) handleConversionProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Progress(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// handleConversionEvents streams progress via Server-Sent Events. The event
// ID is the progress percentage; a reconnecting client that sends
// Last-Event-ID (or ?lastEventId=) skips updates it has already seen.
func (s *Server) handleConversionEvents(w http.ResponseWriter, r *http.Request) {
	lastEventID := r.Header.Get("Last-Event-ID")
	if lastEventID == "" {
		lastEventID = r.URL.Query().Get("lastEventId")
	}
	resumeAfter := -1
	if n, err := strconv.Atoi(lastEventID); err == nil {
		resumeAfter = n
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, fmt.Errorf("streaming not supported"))
		return
	}

	ch, err := s.service.Subscribe(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case p, ok := <-ch:
			if !ok {
				fmt.Fprint(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if p.Percent <= resumeAfter && !p.Phase.Done() {
				continue
			}
			data, _ := json.Marshal(p)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", p.Percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleConversionResult returns the result of a finished conversion. An
// unfinished one answers 202 with its progress, unless ?wait=true, which
// blocks until it finishes or the client goes away.
func (s *Server) handleConversionResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")

	p, err := s.service.Progress(id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !p.Phase.Done() && !wait {
		writeJSON(w, r, http.StatusAccepted, p)
		return
	}

	res, err := s.service.Result(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toResponse(res))
}
