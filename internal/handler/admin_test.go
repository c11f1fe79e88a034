package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fieldshow/bandcatalog/internal/db"
	"github.com/fieldshow/bandcatalog/internal/db/models"
	"github.com/fieldshow/bandcatalog/internal/service/breaker"
	"github.com/fieldshow/bandcatalog/internal/service/quota"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "")
}

// Mock sync job repository
type mockJobRepo struct {
	jobs map[uuid.UUID]*models.SyncJob
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[uuid.UUID]*models.SyncJob)}
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.SyncJob) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return job, nil
}

func (m *mockJobRepo) SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error {
	return nil
}

func (m *mockJobRepo) AppendError(ctx context.Context, id uuid.UUID, message string) error {
	return nil
}

func (m *mockJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, found, added, updated int) error {
	return nil
}

func (m *mockJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, found, added, updated int, reason string) error {
	return nil
}

func (m *mockJobRepo) List(ctx context.Context, limit, offset int) ([]*models.SyncJob, error) {
	out := make([]*models.SyncJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	if offset >= len(out) {
		return []*models.SyncJob{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *mockJobRepo) ListStuck(ctx context.Context, cutoff time.Time) ([]*models.SyncJob, error) {
	return nil, nil
}

func newTestHandler(repo *mockJobRepo) *AdminHandler {
	q := quota.NewCounter(10000)
	b := breaker.New("admin-test", 5, time.Minute, func(err error) bool { return err != nil })
	return NewAdminHandler(nil, repo, q, b)
}

func performJSON(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetJob(t *testing.T) {
	repo := newMockJobRepo()
	job := models.NewSyncJob(models.ScopeAll, models.ModeIncremental, false)
	_ = repo.Create(context.Background(), job)

	h := newTestHandler(repo)
	r := gin.New()
	r.GET("/sync/jobs/:id", h.GetJob)

	t.Run("found", func(t *testing.T) {
		w := performJSON(r, http.MethodGet, "/sync/jobs/"+job.ID.String(), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var got models.SyncJob
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if got.ID != job.ID {
			t.Errorf("job ID = %s, want %s", got.ID, job.ID)
		}
		if got.Status != models.JobStatusInProgress {
			t.Errorf("status = %s, want %s", got.Status, models.JobStatusInProgress)
		}
	})

	t.Run("not found", func(t *testing.T) {
		w := performJSON(r, http.MethodGet, "/sync/jobs/"+uuid.NewString(), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		w := performJSON(r, http.MethodGet, "/sync/jobs/not-a-uuid", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}

		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid error body: %v", err)
		}
		if resp.Status != http.StatusBadRequest {
			t.Errorf("body status = %d, want 400", resp.Status)
		}
		if resp.Path != "/sync/jobs/not-a-uuid" {
			t.Errorf("path = %s, want request path", resp.Path)
		}
	})
}

func TestListJobs(t *testing.T) {
	repo := newMockJobRepo()
	for i := 0; i < 3; i++ {
		_ = repo.Create(context.Background(), models.NewSyncJob(models.ScopeAll, models.ModeFull, false))
	}

	h := newTestHandler(repo)
	r := gin.New()
	r.GET("/sync/jobs", h.ListJobs)

	t.Run("defaults", func(t *testing.T) {
		w := performJSON(r, http.MethodGet, "/sync/jobs", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var resp struct {
			Jobs   []*models.SyncJob `json:"jobs"`
			Limit  int               `json:"limit"`
			Offset int               `json:"offset"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if len(resp.Jobs) != 3 {
			t.Errorf("jobs = %d, want 3", len(resp.Jobs))
		}
		if resp.Limit != 50 {
			t.Errorf("limit = %d, want 50", resp.Limit)
		}
	})

	t.Run("out-of-range limit falls back", func(t *testing.T) {
		w := performJSON(r, http.MethodGet, "/sync/jobs?limit=9999", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var resp struct {
			Limit int `json:"limit"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if resp.Limit != 50 {
			t.Errorf("limit = %d, want 50", resp.Limit)
		}
	})
}

func TestTriggerSyncValidation(t *testing.T) {
	h := newTestHandler(newMockJobRepo())
	r := gin.New()
	r.POST("/sync", h.TriggerSync)

	t.Run("malformed JSON", func(t *testing.T) {
		w := performJSON(r, http.MethodPost, "/sync", []byte(`{not json`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("missing scope", func(t *testing.T) {
		w := performJSON(r, http.MethodPost, "/sync", []byte(`{"mode":"FULL"}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("invalid mode", func(t *testing.T) {
		w := performJSON(r, http.MethodPost, "/sync", []byte(`{"scope":"all","mode":"SIDEWAYS"}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestTriggerCleanupValidation(t *testing.T) {
	h := newTestHandler(newMockJobRepo())
	r := gin.New()
	r.POST("/maintenance/cleanup", h.TriggerCleanup)

	t.Run("missing scope", func(t *testing.T) {
		w := performJSON(r, http.MethodPost, "/maintenance/cleanup", []byte(`{}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unknown scope", func(t *testing.T) {
		w := performJSON(r, http.MethodPost, "/maintenance/cleanup", []byte(`{"scope":"everything"}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestQuotaStatus(t *testing.T) {
	h := newTestHandler(newMockJobRepo())
	r := gin.New()
	r.GET("/quota", h.QuotaStatus)

	w := performJSON(r, http.MethodGet, "/quota", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Quota struct {
			Used      int `json:"used"`
			Limit     int `json:"limit"`
			Remaining int `json:"remaining"`
		} `json:"quota"`
		Breaker struct {
			State string `json:"state"`
		} `json:"breaker"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Quota.Limit != 10000 {
		t.Errorf("quota limit = %d, want 10000", resp.Quota.Limit)
	}
	if resp.Quota.Remaining != 10000 {
		t.Errorf("quota remaining = %d, want 10000", resp.Quota.Remaining)
	}
	if resp.Breaker.State != "closed" {
		t.Errorf("breaker state = %s, want closed", resp.Breaker.State)
	}
}
