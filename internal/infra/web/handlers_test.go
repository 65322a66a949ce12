package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"social-video-orchestrator/internal/domain"
	"social-video-orchestrator/internal/domain/model"
	"social-video-orchestrator/internal/domain/ports/repository"
)

// stubVideoUC is a canned-response implementation of usecase.VideoUseCase.
type stubVideoUC struct {
	job        *model.GenerationJob
	artifact   *model.Artifact
	err        error
	sweepRecon int
	sweepTotal int

	lastOwner string
}

func (s *stubVideoUC) Create(ctx context.Context, ownerID string, in model.InputSpec, params model.GenerationParams) (*model.GenerationJob, error) {
	s.lastOwner = ownerID
	return s.job, s.err
}

func (s *stubVideoUC) Get(ctx context.Context, jobID, ownerID string) (*model.GenerationJob, error) {
	s.lastOwner = ownerID
	return s.job, s.err
}

func (s *stubVideoUC) List(ctx context.Context, ownerID string, filter repository.JobFilter, offset, limit int) ([]*model.GenerationJob, int, error) {
	s.lastOwner = ownerID
	if s.err != nil {
		return nil, 0, s.err
	}
	return []*model.GenerationJob{s.job}, 1, nil
}

func (s *stubVideoUC) ArtifactAccess(ctx context.Context, jobID, ownerID string) (*model.Artifact, error) {
	s.lastOwner = ownerID
	return s.artifact, s.err
}

func (s *stubVideoUC) Delete(ctx context.Context, jobID, ownerID string) error {
	s.lastOwner = ownerID
	return s.err
}

func (s *stubVideoUC) UploadImage(ctx context.Context, ownerID, contentType string, r io.Reader) (string, error) {
	s.lastOwner = ownerID
	if s.err != nil {
		return "", s.err
	}
	return "uploads/" + ownerID + "/ref.png", nil
}

func (s *stubVideoUC) ForceCompletionCheck(ctx context.Context, jobID string) (model.JobStatus, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.job.Status, nil
}

func (s *stubVideoUC) SweepStuckJobs(ctx context.Context) (int, int, error) {
	return s.sweepRecon, s.sweepTotal, s.err
}

func testJob() *model.GenerationJob {
	now := time.Now()
	return &model.GenerationJob{
		ID:      "01JOB",
		OwnerID: "user-1",
		Input:   model.InputSpec{Title: "Teaser", Prompt: "a rocket lifting off at golden hour"},
		Params:  model.GenerationParams{AspectRatio: "16:9", DurationSeconds: 8, SampleCount: 1},
		Status:  model.JobStatusPending,

		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestServer(uc *stubVideoUC) http.Handler {
	logger := zerolog.Nop()
	return NewServer(uc, "admin-secret", &logger).Router()
}

func doRequest(h http.Handler, method, target, owner string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCreateVideo(t *testing.T) {
	uc := &stubVideoUC{job: testJob()}
	h := newTestServer(uc)

	body, _ := json.Marshal(createVideoRequest{
		Title:  "Teaser",
		Prompt: "a rocket lifting off at golden hour",
		Params: model.GenerationParams{AspectRatio: "16:9", DurationSeconds: 8, SampleCount: 1},
	})
	rr := doRequest(h, http.MethodPost, "/api/v1/videos/", "user-1", body)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	var view jobView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.ID != "01JOB" || view.Status != model.JobStatusPending {
		t.Errorf("view = %+v", view)
	}
	if uc.lastOwner != "user-1" {
		t.Errorf("owner passed to usecase = %q", uc.lastOwner)
	}
}

func TestCreateVideoRejectsBadBody(t *testing.T) {
	h := newTestServer(&stubVideoUC{job: testJob()})
	rr := doRequest(h, http.MethodPost, "/api/v1/videos/", "user-1", []byte("{not json"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestMissingOwnerHeaderIsUnauthorized(t *testing.T) {
	h := newTestServer(&stubVideoUC{job: testJob()})
	for _, tc := range []struct{ method, target string }{
		{http.MethodPost, "/api/v1/videos/"},
		{http.MethodGet, "/api/v1/videos/"},
		{http.MethodGet, "/api/v1/videos/01JOB"},
		{http.MethodDelete, "/api/v1/videos/01JOB"},
		{http.MethodPost, "/api/v1/uploads"},
	} {
		rr := doRequest(h, tc.method, tc.target, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tc.method, tc.target, rr.Code)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidArgument, http.StatusBadRequest},
		{domain.ErrMissingInputImage, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusNotFound}, // existence must not leak
		{domain.ErrArtifactNotReady, http.StatusConflict},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newTestServer(&stubVideoUC{err: tc.err})
		rr := doRequest(h, http.MethodGet, "/api/v1/videos/01JOB", "user-1", nil)
		if rr.Code != tc.want {
			t.Errorf("err %v: status = %d, want %d", tc.err, rr.Code, tc.want)
		}
	}
}

func TestDownload(t *testing.T) {
	uc := &stubVideoUC{artifact: &model.Artifact{
		Path:         "outputs/01JOB/sample_0.mp4",
		FileName:     "sample_0.mp4",
		URL:          "https://signed.example/sample_0.mp4",
		URLExpiresAt: time.Now().Add(time.Hour),
		SizeBytes:    4096,
		ContentType:  "video/mp4",
	}}
	h := newTestServer(uc)

	rr := doRequest(h, http.MethodGet, "/api/v1/videos/01JOB/download", "user-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		URL      string `json:"url"`
		FileName string `json:"file_name"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.URL != "https://signed.example/sample_0.mp4" || resp.FileName != "sample_0.mp4" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestDeleteVideo(t *testing.T) {
	h := newTestServer(&stubVideoUC{job: testJob()})
	rr := doRequest(h, http.MethodDelete, "/api/v1/videos/01JOB", "user-1", nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
}

func TestListVideos(t *testing.T) {
	h := newTestServer(&stubVideoUC{job: testJob()})
	rr := doRequest(h, http.MethodGet, "/api/v1/videos/?limit=10&status=pending", "user-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data  []jobView `json:"data"`
		Total int       `json:"total"`
		Limit int       `json:"limit"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Total != 1 || resp.Limit != 10 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAdminAuth(t *testing.T) {
	uc := &stubVideoUC{sweepRecon: 2, sweepTotal: 5}
	h := newTestServer(uc)

	// No token.
	rr := doRequest(h, http.MethodPost, "/api/v1/admin/videos/sweep", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rr.Code)
	}

	// Wrong token.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/videos/sweep", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("wrong token: status = %d, want 403", rr.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/videos/sweep", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Reconciled int `json:"reconciled"`
		Total      int `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reconciled != 2 || resp.Total != 5 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAdminForceCheck(t *testing.T) {
	job := testJob()
	job.Status = model.JobStatusCompleted
	h := newTestServer(&stubVideoUC{job: job})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/videos/01JOB/check", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Status model.JobStatus `json:"status"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != model.JobStatusCompleted {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(&stubVideoUC{})
	rr := doRequest(h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
