package handlers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/bank-recon-backend/internal/api/dto"
	"github.com/eshaffer321/bank-recon-backend/internal/api/handlers"
	"github.com/eshaffer321/bank-recon-backend/internal/application/recon"
	"github.com/eshaffer321/bank-recon-backend/internal/application/service"
)

type stubRunner struct {
	report *recon.Report
	err    error
}

func (r *stubRunner) RunWithOptions(_ context.Context, _ string, _ recon.Options) (*recon.Report, error) {
	return r.report, r.err
}

func newJobsHandler(runner service.Runner) *handlers.JobsHandler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := service.NewReconService(runner, recon.DefaultOptions(), logger)
	return handlers.NewJobsHandler(svc)
}

func waitForJobStatus(t *testing.T, handler *handlers.JobsHandler, jobID string, want string) dto.RunJobResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/reconcile/"+jobID, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "jobId", jobID))
		rec := httptest.NewRecorder()

		handler.GetStatus(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunJobResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		if response.Status == want {
			return response
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return dto.RunJobResponse{}
}

func TestJobsHandler_Start(t *testing.T) {
	t.Run("starts a job and reports completion", func(t *testing.T) {
		runner := &stubRunner{report: &recon.Report{
			RunID:      "run-1",
			Total:      3,
			Reconciled: 3,
		}}
		handler := newJobsHandler(runner)

		body := `{"statement_path":"statements/march.csv"}`
		req := httptest.NewRequest(http.MethodPost, "/api/reconcile", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Start(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)

		var started dto.StartRunResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))
		require.NotEmpty(t, started.JobID)

		job := waitForJobStatus(t, handler, started.JobID, string(service.StatusCompleted))
		require.NotNil(t, job.Report)
		assert.Equal(t, "run-1", job.Report.RunID)
		assert.Equal(t, 3, job.Report.Reconciled)
	})

	t.Run("rejects missing statement path", func(t *testing.T) {
		handler := newJobsHandler(&stubRunner{})

		req := httptest.NewRequest(http.MethodPost, "/api/reconcile", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		handler.Start(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid body", func(t *testing.T) {
		handler := newJobsHandler(&stubRunner{})

		req := httptest.NewRequest(http.MethodPost, "/api/reconcile", strings.NewReader(`not json`))
		rec := httptest.NewRecorder()

		handler.Start(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestJobsHandler_GetStatus(t *testing.T) {
	t.Run("returns 404 for unknown job", func(t *testing.T) {
		handler := newJobsHandler(&stubRunner{})

		req := httptest.NewRequest(http.MethodGet, "/api/reconcile/nope", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "jobId", "nope"))
		rec := httptest.NewRecorder()

		handler.GetStatus(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestJobsHandler_ListAll(t *testing.T) {
	t.Run("lists started jobs", func(t *testing.T) {
		runner := &stubRunner{report: &recon.Report{Total: 1, Reconciled: 1}}
		handler := newJobsHandler(runner)

		body := `{"statement_path":"statements/march.csv","dry_run":true}`
		req := httptest.NewRequest(http.MethodPost, "/api/reconcile", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Start(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code)

		listReq := httptest.NewRequest(http.MethodGet, "/api/reconcile", nil)
		listRec := httptest.NewRecorder()

		handler.ListAll(listRec, listReq)

		assert.Equal(t, http.StatusOK, listRec.Code)

		var response dto.AllJobsResponse
		require.NoError(t, json.NewDecoder(listRec.Body).Decode(&response))
		require.Equal(t, 1, response.Count)
		assert.Equal(t, "statements/march.csv", response.Jobs[0].StatementPath)
		assert.True(t, response.Jobs[0].DryRun)
	})
}

func TestJobsHandler_Cancel(t *testing.T) {
	t.Run("cancelling an unknown job conflicts", func(t *testing.T) {
		handler := newJobsHandler(&stubRunner{})

		req := httptest.NewRequest(http.MethodDelete, "/api/reconcile/nope", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "jobId", "nope"))
		rec := httptest.NewRecorder()

		handler.Cancel(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
