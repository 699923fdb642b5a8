package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lrcfetch/internal/library"
	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/pipeline"
)

// FetchRequest starts a job. Empty fields fall back to the server config.
type FetchRequest struct {
	Path      string `json:"path"`
	Type      string `json:"type,omitempty"`
	Dump      *bool  `json:"dump,omitempty"`
	Overwrite string `json:"overwrite,omitempty"`
	Order     string `json:"order,omitempty"`
}

type JobResponse struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Status      JobStatus      `json:"status"`
	Progress    int            `json:"progress"`
	Total       int            `json:"total"`
	Current     string         `json:"current,omitempty"`
	Stats       pipeline.Stats `json:"stats"`
	Warnings    []string       `json:"warnings,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   string         `json:"created_at"`
	StartedAt   *string        `json:"started_at,omitempty"`
	CompletedAt *string        `json:"completed_at,omitempty"`
}

// jobSettings is a request resolved against the server config.
type jobSettings struct {
	format    lyrics.Format
	dump      bool
	overwrite bool
	providers []lyrics.Provider
}

func (s *Server) resolve(req FetchRequest) (jobSettings, error) {
	var js jobSettings

	typ := req.Type
	if typ == "" {
		typ = s.config.Type
	}
	format, err := lyrics.ParseFormat(typ)
	if err != nil {
		return js, err
	}
	js.format = format

	overwrite := req.Overwrite
	if overwrite == "" {
		overwrite = s.config.Overwrite
	}
	switch overwrite {
	case "yes":
		js.overwrite = true
	case "skip":
	default:
		return js, fmt.Errorf("overwrite must be 'yes' or 'skip', got %q", overwrite)
	}

	js.dump = s.config.Dump
	if req.Dump != nil {
		js.dump = *req.Dump
	}

	order := req.Order
	if order == "" {
		order = s.config.Order
	}
	providers, unknown, err := s.registry.Order(order)
	if err != nil {
		return js, err
	}
	if len(unknown) > 0 {
		return js, fmt.Errorf("unknown providers: %s", strings.Join(unknown, ", "))
	}
	if len(providers) == 0 {
		return js, errors.New("no providers selected")
	}
	js.providers = providers

	return js, nil
}

const timeLayout = "2006-01-02 15:04:05"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// allow rejects requests whose method is not m.
func allow(w http.ResponseWriter, r *http.Request, m string) bool {
	if r.Method == m {
		return true
	}
	w.Header().Set("Allow", m)
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	settings, err := s.resolve(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobMgr.CreateJob(req)
	s.logger.Info("Created job %s for %s", job.ID, req.Path)
	go s.processJob(job, settings)

	writeJSON(w, http.StatusAccepted, job.response())
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if allow(w, r, http.MethodGet) {
		writeJSON(w, http.StatusOK, s.registry.Names())
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	list := make([]*JobResponse, 0)
	for _, job := range s.jobMgr.ListJobs() {
		list = append(list, job.response())
	}
	writeJSON(w, http.StatusOK, list)
}

// handleJobAction serves GET /api/jobs/{id} and POST /api/jobs/{id}/cancel.
func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request) {
	id, action, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/")
	if id == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	switch action {
	case "":
		if !allow(w, r, http.MethodGet) {
			return
		}
		job, err := s.jobMgr.GetJob(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, job.response())
	case "cancel":
		if allow(w, r, http.MethodPost) {
			s.cancelJob(w, id)
		}
	default:
		http.Error(w, "Invalid request", http.StatusBadRequest)
	}
}

func (s *Server) cancelJob(w http.ResponseWriter, id string) {
	var done JobStatus
	var stop context.CancelFunc
	err := s.jobMgr.UpdateJob(id, func(j *Job) {
		if j.Status.Done() {
			done = j.Status
			return
		}
		stop = j.Cancel
		j.Status = StatusCancelled
	})
	switch {
	case err != nil:
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case done != "":
		http.Error(w, fmt.Sprintf("job already %s", done), http.StatusConflict)
		return
	}

	if stop != nil {
		stop()
	}
	s.logger.Info("Cancelled job %s", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(StatusCancelled)})
}

func (s *Server) processJob(job *Job, settings jobSettings) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	cancelled := false
	s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		// cancelled before the goroutine got here
		if j.Status.Done() {
			cancelled = true
			return
		}
		j.Cancel = cancel
		j.Status = StatusRunning
	})
	if cancelled {
		return
	}

	s.logger.Info("Starting job %s", job.ID)

	songs, err := s.loadSongs(job.Request.Path, s.logger)
	if err != nil {
		s.fail(job.ID, err)
		return
	}

	s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		j.Total = len(songs)
	})

	hooks := pipeline.Hooks{
		OnSong: func(_, _ int, song library.Song) {
			s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Current = song.Track.Label()
			})
		},
		OnProgress: func() {
			s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Progress++
			})
		},
		OnWarning: func(msg string) {
			s.jobMgr.AddWarning(job.ID, msg)
		},
	}

	opts := pipeline.Options{
		Format:    settings.format,
		Overwrite: settings.overwrite,
	}
	stats, err := pipeline.Run(ctx, opts, songs, settings.providers, s.newSaver(settings.dump), nil, s.logger, hooks)

	s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		j.Stats = stats
		j.Current = ""
		switch {
		case errors.Is(err, context.Canceled):
			j.Status = StatusCancelled
		case err != nil:
			j.Status = StatusFailed
			j.Error = err.Error()
		case !j.Status.Done():
			j.Status = StatusCompleted
		}
	})

	s.logger.Info("Job %s finished: %d saved, %d skipped, %d failed", job.ID, stats.Saved, stats.Skipped, stats.Failed)
}

func (s *Server) fail(id string, err error) {
	s.logger.Error("Job %s failed: %v", id, err)
	s.jobMgr.UpdateJob(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = err.Error()
	})
}

func (j *Job) response() *JobResponse {
	return &JobResponse{
		ID:          j.ID,
		Path:        j.Request.Path,
		Status:      j.Status,
		Progress:    j.Progress,
		Total:       j.Total,
		Current:     j.Current,
		Stats:       j.Stats,
		Warnings:    j.Warnings,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt.Format(timeLayout),
		StartedAt:   formatTime(j.StartedAt),
		CompletedAt: formatTime(j.CompletedAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(timeLayout)
	return &v
}
