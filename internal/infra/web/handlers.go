package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"social-video-orchestrator/internal/domain"
	"social-video-orchestrator/internal/domain/model"
	"social-video-orchestrator/internal/domain/ports/repository"
)

// Request/response shapes. The raw operation payload stays internal; clients
// get an operation-lite view plus the processing trail.

type createVideoRequest struct {
	Title     string                 `json:"title"`
	Prompt    string                 `json:"prompt"`
	ImagePath string                 `json:"image_path,omitempty"`
	ImageMIME string                 `json:"image_mime,omitempty"`
	Params    model.GenerationParams `json:"params"`
}

type operationView struct {
	Name string `json:"name,omitempty"`
	Done bool   `json:"done"`
}

type artifactSummary struct {
	FileName     string    `json:"file_name"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
	URLExpiresAt time.Time `json:"url_expires_at"`
}

type jobView struct {
	ID         string                 `json:"id"`
	Status     model.JobStatus        `json:"status"`
	Title      string                 `json:"title"`
	Prompt     string                 `json:"prompt"`
	Params     model.GenerationParams `json:"params"`
	Operation  operationView          `json:"operation"`
	Processing model.ProcessingInfo   `json:"processing"`
	Artifact   *artifactSummary       `json:"artifact"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func toJobView(job *model.GenerationJob) jobView {
	v := jobView{
		ID:         job.ID,
		Status:     job.Status,
		Title:      job.Input.Title,
		Prompt:     job.Input.Prompt,
		Params:     job.Params,
		Operation:  operationView{Name: job.Operation.Name, Done: job.Operation.Done},
		Processing: job.Processing,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	}
	if job.Artifact != nil {
		v.Artifact = &artifactSummary{
			FileName:     job.Artifact.FileName,
			SizeBytes:    job.Artifact.SizeBytes,
			ContentType:  job.Artifact.ContentType,
			URLExpiresAt: job.Artifact.URLExpiresAt,
		}
	}
	return v
}

func ownerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrMissingInputImage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		// Do not leak existence of other owners' jobs.
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrArtifactNotReady):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrSweepInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	in := model.InputSpec{
		Title:     req.Title,
		Prompt:    req.Prompt,
		ImagePath: req.ImagePath,
		ImageMIME: req.ImageMIME,
	}
	job, err := s.videoUC.Create(r.Context(), ownerID(r), in, req.Params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobView(job))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	filter := repository.JobFilter{}
	if st := r.URL.Query().Get("status"); st != "" {
		filter.Status = model.JobStatus(st)
	}

	jobs, total, err := s.videoUC.List(r.Context(), ownerID(r), filter, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, toJobView(j))
	}
	writeJSON(w, http.StatusOK, struct {
		Data   []jobView `json:"data"`
		Total  int       `json:"total"`
		Limit  int       `json:"limit"`
		Offset int       `json:"offset"`
	}{Data: views, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	job, err := s.videoUC.Get(r.Context(), chi.URLParam(r, "id"), ownerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.videoUC.ArtifactAccess(r.Context(), chi.URLParam(r, "id"), ownerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		URL         string    `json:"url"`
		FileName    string    `json:"file_name"`
		ContentType string    `json:"content_type"`
		SizeBytes   int64     `json:"size_bytes"`
		ExpiresAt   time.Time `json:"expires_at"`
	}{
		URL:         artifact.URL,
		FileName:    artifact.FileName,
		ContentType: artifact.ContentType,
		SizeBytes:   artifact.SizeBytes,
		ExpiresAt:   artifact.URLExpiresAt,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.videoUC.Delete(r.Context(), chi.URLParam(r, "id"), ownerID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload stores a reference image for image-conditioned generation and
// returns the transient object path the create request needs.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	const maxUploadBytes = 20 << 20
	contentType := r.Header.Get("Content-Type")

	objPath, err := s.videoUC.UploadImage(r.Context(), ownerID(r), contentType, http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Path string `json:"path"`
		MIME string `json:"mime"`
	}{Path: objPath, MIME: contentType})
}

func (s *Server) handleForceCheck(w http.ResponseWriter, r *http.Request) {
	status, err := s.videoUC.ForceCompletionCheck(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status model.JobStatus `json:"status"`
	}{Status: status})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	reconciled, total, err := s.videoUC.SweepStuckJobs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Reconciled int `json:"reconciled"`
		Total      int `json:"total"`
	}{Reconciled: reconciled, Total: total})
}
