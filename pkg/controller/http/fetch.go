package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/fplfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/fplfetch/pkg/domain/model"
	"github.com/m-mizutani/fplfetch/pkg/domain/types"
	"github.com/m-mizutani/fplfetch/pkg/utils/async"
	"github.com/m-mizutani/goerr/v2"
)

// FetchHandler serves dataset status and triggers background fetches.
// At most one fetch runs at a time since all of them write the same archive path.
type FetchHandler struct {
	fetchUC    interfaces.FetchUseCase
	dataset    model.Dataset
	dispatcher *async.Dispatcher
	running    sync.Mutex

	jobMu   sync.Mutex
	lastJob *model.FetchJobStatus
}

// NewFetchHandler creates a new FetchHandler
func NewFetchHandler(fetchUC interfaces.FetchUseCase, ds model.Dataset, dispatcher *async.Dispatcher) *FetchHandler {
	return &FetchHandler{
		fetchUC:    fetchUC,
		dataset:    ds,
		dispatcher: dispatcher,
	}
}

// HandleStatus reports whether the dataset is present on disk
func (h *FetchHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	present, err := h.dataset.IsPresent()
	if err != nil {
		ctxlog.From(r.Context()).Error("Failed to inspect dataset", "error", err)
		writeError(w, r, goerr.Wrap(err, "failed to inspect dataset"), http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, &model.DatasetStatus{
		Present:     present,
		URL:         h.dataset.URL,
		TargetDir:   h.dataset.TargetDir,
		ArchivePath: h.dataset.ArchivePath,
		LastJob:     h.lastJobStatus(),
	}, http.StatusOK)
}

func (h *FetchHandler) lastJobStatus() *model.FetchJobStatus {
	h.jobMu.Lock()
	defer h.jobMu.Unlock()
	if h.lastJob == nil {
		return nil
	}
	job := *h.lastJob
	return &job
}

func (h *FetchHandler) updateJob(update func(job *model.FetchJobStatus)) {
	h.jobMu.Lock()
	defer h.jobMu.Unlock()
	update(h.lastJob)
}

// HandleFetch starts a fetch in the background and returns its job ID. The
// outcome of the latest job is reported as last_job by HandleStatus.
func (h *FetchHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.From(r.Context())

	if !h.running.TryLock() {
		logger.Warn("Fetch requested while another is running")
		writeError(w, r, types.ErrFetchInProgress, http.StatusConflict)
		return
	}

	jobID := uuid.NewString()
	ctx := ctxlog.With(r.Context(), logger.With("job_id", jobID))

	h.jobMu.Lock()
	h.lastJob = &model.FetchJobStatus{
		JobID:     jobID,
		State:     model.FetchJobRunning,
		StartedAt: time.Now(),
	}
	h.jobMu.Unlock()

	h.dispatcher.Dispatch(ctx, func(ctx context.Context) error {
		defer h.running.Unlock()

		result, err := h.fetchUC.Fetch(ctx, h.dataset)
		finishedAt := time.Now()
		if err != nil {
			h.updateJob(func(job *model.FetchJobStatus) {
				job.State = model.FetchJobFailed
				job.Error = err.Error()
				job.FinishedAt = &finishedAt
			})
			return goerr.Wrap(err, "background fetch failed", goerr.V("job_id", jobID))
		}

		h.updateJob(func(job *model.FetchJobStatus) {
			job.State = model.FetchJobSucceeded
			job.Skipped = result.Skipped
			job.FileCount = len(result.Files)
			job.FinishedAt = &finishedAt
		})

		ctxlog.From(ctx).Info("Background fetch finished",
			"skipped", result.Skipped,
			"file_count", len(result.Files),
		)
		return nil
	})

	logger.Info("Fetch accepted", "job_id", jobID)
	writeJSON(w, r, &model.FetchJob{JobID: jobID}, http.StatusAccepted)
}
