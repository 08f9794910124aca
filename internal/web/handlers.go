package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"mbart/internal/artwork"
	"mbart/internal/downloader"
	"mbart/internal/release"
)

type JobRequest struct {
	Query        string `json:"query"`
	ImageFilter  string `json:"image_filter,omitempty"`
	SearchFilter string `json:"search_filter,omitempty"`
}

type JobResponse struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Status      JobStatus `json:"status"`
	Selected    string    `json:"selected,omitempty"`
	Dir         string    `json:"dir,omitempty"`
	Progress    int       `json:"progress"`
	Total       int       `json:"total"`
	Done        int       `json:"done"`
	Skipped     int       `json:"skipped"`
	Rejected    int       `json:"rejected"`
	Failed      int       `json:"failed"`
	Warnings    []string  `json:"warnings,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   string    `json:"created_at"`
	StartedAt   *string   `json:"started_at,omitempty"`
	CompletedAt *string   `json:"completed_at,omitempty"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	jobConfig := s.config
	jobConfig.Query = strings.TrimSpace(req.Query)
	jobConfig.AutoSelect = true
	if req.ImageFilter != "" {
		jobConfig.ImageFilter = req.ImageFilter
	}
	if req.SearchFilter != "" {
		jobConfig.SearchFilter = req.SearchFilter
	}
	if err := jobConfig.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobMgr.CreateJob(jobConfig)
	s.logger.Info("Created job %s for query: %s", job.ID, job.Query)

	ctx, cancel := context.WithCancel(s.ctx)
	s.jobMgr.UpdateJob(job.ID, func(j *Job) { j.cancel = cancel })
	go s.processJob(ctx, cancel, job)

	writeJSON(w, http.StatusAccepted, s.jobToResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobMgr.ListJobs()
	responses := make([]*JobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = s.jobToResponse(job)
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobMgr.GetJob(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.jobToResponse(job))
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.jobMgr.GetJob(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if !s.jobMgr.Cancel(id) {
		http.Error(w, "job already finished", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(StatusCancelled)})
}

func (s *Server) processJob(ctx context.Context, cancel context.CancelFunc, job Job) {
	defer cancel()

	s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		if j.Status == StatusPending {
			j.Status = StatusRunning
		}
	})
	s.logger.Info("Starting job %s", job.ID)

	p := s.newPipeline(job.Config, s.logger)
	p.Hooks.OnSelected = func(c release.Candidate, dir string) {
		s.jobMgr.UpdateJob(job.ID, func(j *Job) {
			j.Selected = c.Title
			j.Dir = dir
		})
	}
	p.Hooks.OnTargets = func(n int) {
		s.jobMgr.UpdateJob(job.ID, func(j *Job) { j.Total = j.Progress + n })
	}
	p.Hooks.OnReleaseStatus = func(st artwork.ReleaseStatus) {
		if st.State == artwork.StateError {
			s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Warnings = append(j.Warnings, st.Release.ID+": "+st.Summary())
			})
		}
	}
	p.Hooks.OnReport = func(r downloader.Report) {
		s.jobMgr.UpdateJob(job.ID, func(j *Job) {
			j.Progress++
			switch r.Status {
			case downloader.StatusDone:
				j.Done++
			case downloader.StatusSkipped:
				j.Skipped++
			case downloader.StatusRejected:
				j.Rejected++
			case downloader.StatusFailed:
				j.Failed++
			}
		})
	}
	p.Hooks.OnWarning = func(msg string) {
		s.jobMgr.UpdateJob(job.ID, func(j *Job) { j.Warnings = append(j.Warnings, msg) })
	}

	_, err := p.Run(ctx)
	switch {
	case err == nil:
		s.jobMgr.UpdateJob(job.ID, func(j *Job) {
			if !j.Status.Done() {
				j.Status = StatusCompleted
			}
		})
		s.logger.Info("Job %s completed successfully", job.ID)
	case errors.Is(err, context.Canceled):
		s.jobMgr.UpdateJob(job.ID, func(j *Job) {
			if !j.Status.Done() {
				j.Status = StatusCancelled
			}
		})
		s.logger.Info("Job %s cancelled", job.ID)
	default:
		s.logger.Error("Job %s failed: %v", job.ID, err)
		s.jobMgr.UpdateJob(job.ID, func(j *Job) {
			if !j.Status.Done() {
				j.Status = StatusFailed
				j.Error = err.Error()
			}
		})
	}
}

func (s *Server) jobToResponse(job Job) *JobResponse {
	resp := &JobResponse{
		ID:        job.ID,
		Query:     job.Query,
		Status:    job.Status,
		Selected:  job.Selected,
		Dir:       job.Dir,
		Progress:  job.Progress,
		Total:     job.Total,
		Done:      job.Done,
		Skipped:   job.Skipped,
		Rejected:  job.Rejected,
		Failed:    job.Failed,
		Warnings:  job.Warnings,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format("2006-01-02 15:04:05"),
	}

	if job.StartedAt != nil {
		started := job.StartedAt.Format("2006-01-02 15:04:05")
		resp.StartedAt = &started
	}

	if job.CompletedAt != nil {
		completed := job.CompletedAt.Format("2006-01-02 15:04:05")
		resp.CompletedAt = &completed
	}

	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
