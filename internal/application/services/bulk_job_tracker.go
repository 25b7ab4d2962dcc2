package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/bulkjob"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/envelope"
	"github.com/avatarctic/land-registry-gateway/internal/core/domain/landregistry"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

const (
	defaultJobRetention = 24 * time.Hour
	notifyTimeout       = 30 * time.Second
	jobIDRule           = "required,max=128"
)

type trackedJob struct {
	job         bulkjob.Job
	notifyEmail string
	notified    bool
	trackedAt   time.Time
}

// BulkJobTracker records submitted bulk searches and moves them through
// their lifecycle as polls report new states. The registry is the only
// source of status.
//
// Records are dropped once they are no longer useful: a failed job after a
// poll has returned it, a completed job after a successful download, and
// any job tracked for longer than the retention window.
type BulkJobTracker struct {
	executor  ports.RequestExecutor
	notifier  ports.JobNotifier
	observer  ports.GatewayObserver
	logger    *logrus.Logger
	retention time.Duration
	now       func() time.Time

	mu   sync.Mutex
	jobs map[string]*trackedJob
}

type TrackerOption func(*BulkJobTracker)

// WithTrackerClock replaces time.Now, for tests.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *BulkJobTracker) { t.now = now }
}

// NewBulkJobTracker creates a tracker. notifier and observer may be nil.
func NewBulkJobTracker(executor ports.RequestExecutor, notifier ports.JobNotifier, observer ports.GatewayObserver, logger *logrus.Logger, retention time.Duration, opts ...TrackerOption) *BulkJobTracker {
	if retention <= 0 {
		retention = defaultJobRetention
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	t := &BulkJobTracker{
		executor:  executor,
		notifier:  notifier,
		observer:  observer,
		logger:    logger,
		retention: retention,
		now:       time.Now,
		jobs:      make(map[string]*trackedJob),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *BulkJobTracker) Submit(ctx context.Context, req landregistry.BulkSearchRequest) envelope.Result[bulkjob.Handle] {
	t.sweep()
	req = req.Normalize()
	if err := validate.Struct(req); err != nil {
		return envelope.Fail[bulkjob.Handle](envelope.NewError(envelope.CodeInvalidRequest, err.Error(), nil))
	}
	if !req.HasCriteria() {
		return envelope.Failf[bulkjob.Handle](envelope.CodeInvalidRequest, "at least one postcode or title number is required")
	}

	res := t.executor.Do(ctx, ports.Request{
		Operation: landregistry.OpStartBulkSearch,
		Method:    http.MethodPost,
		Path:      "/bulk-search",
		Body:      req.UpstreamBody(),
	})
	if !res.Success {
		return envelope.Recast[json.RawMessage, bulkjob.Handle](res)
	}
	job, apiErr := decodeJob(res.Data, "")
	if apiErr != nil {
		return envelope.Fail[bulkjob.Handle](apiErr)
	}

	now := t.now()
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = now
	}
	tj := &trackedJob{job: job, notifyEmail: req.NotifyEmail, trackedAt: now}

	t.mu.Lock()
	t.jobs[job.ID] = tj
	notify := t.settle(tj)
	t.mu.Unlock()

	t.observer.BulkJobObserved(string(job.Status()))
	t.logger.WithFields(logrus.Fields{"job_id": job.ID, "status": job.Status()}).Info("bulk search submitted")
	if notify != "" {
		t.notify(ctx, notify, job.Clone())
	}
	return envelope.Ok(job.Handle())
}

// Poll fetches the job's current state from the registry. A snapshot that
// would move a tracked job backwards, or out of a terminal state, is
// rejected with INVALID_JOB_TRANSITION and the record is left as it was.
func (t *BulkJobTracker) Poll(ctx context.Context, jobID string) envelope.Result[bulkjob.Job] {
	t.sweep()
	if err := validate.Var(jobID, jobIDRule); err != nil {
		return envelope.Failf[bulkjob.Job](envelope.CodeInvalidRequest, "invalid job id: %v", err)
	}

	res := t.executor.Do(ctx, ports.Request{
		Operation: landregistry.OpGetBulkSearchStatus,
		Method:    http.MethodGet,
		Path:      "/bulk-search/" + url.PathEscape(jobID),
	})
	if !res.Success {
		return envelope.Recast[json.RawMessage, bulkjob.Job](res)
	}
	job, apiErr := decodeJob(res.Data, jobID)
	if apiErr != nil {
		return envelope.Fail[bulkjob.Job](apiErr)
	}
	if job.ID != jobID {
		return envelope.Failf[bulkjob.Job](envelope.CodeDecodeError, "status response for job %q does not match %q", job.ID, jobID)
	}

	t.mu.Lock()
	tj, tracked := t.jobs[jobID]
	if tracked {
		prev := tj.job.Status()
		next, err := tj.job.Advance(job)
		if err != nil {
			t.mu.Unlock()
			t.logger.WithFields(logrus.Fields{"job_id": jobID, "from": prev, "to": job.Status()}).Warn("rejected bulk job transition")
			return envelope.Fail[bulkjob.Job](envelope.NewError(envelope.CodeInvalidJobTransition, err.Error(),
				map[string]string{"from": string(prev), "to": string(job.Status())}))
		}
		tj.job = next
		if prev != next.Status() {
			t.logger.WithFields(logrus.Fields{"job_id": jobID, "from": prev, "to": next.Status()}).Info("bulk job advanced")
		}
	} else {
		if job.SubmittedAt.IsZero() {
			job.SubmittedAt = t.now()
		}
		tj = &trackedJob{job: job, trackedAt: t.now()}
		t.jobs[jobID] = tj
	}
	snapshot := tj.job.Clone()
	notify := t.settle(tj)
	if snapshot.Status() == bulkjob.StatusFailed {
		delete(t.jobs, jobID)
	}
	t.mu.Unlock()

	t.observer.BulkJobObserved(string(snapshot.Status()))
	if notify != "" {
		t.notify(ctx, notify, snapshot)
	}
	return envelope.Ok(snapshot)
}

// Download returns the export of a completed job. It returns Ok(nil)
// without fetching while the job has not completed. An untracked job is
// polled once first.
func (t *BulkJobTracker) Download(ctx context.Context, jobID string) envelope.Result[[]byte] {
	t.sweep()
	if err := validate.Var(jobID, jobIDRule); err != nil {
		return envelope.Failf[[]byte](envelope.CodeInvalidRequest, "invalid job id: %v", err)
	}

	t.mu.Lock()
	tj, tracked := t.jobs[jobID]
	var status bulkjob.Status
	if tracked {
		status = tj.job.Status()
	}
	t.mu.Unlock()

	if !tracked {
		polled := t.Poll(ctx, jobID)
		if !polled.Success {
			return envelope.Recast[bulkjob.Job, []byte](polled)
		}
		status = polled.Data.Status()
	}
	if status != bulkjob.StatusCompleted {
		return envelope.Ok[[]byte](nil)
	}

	res := t.executor.Fetch(ctx, ports.Request{
		Operation: landregistry.OpDownloadBulkResults,
		Method:    http.MethodGet,
		Path:      "/bulk-export/" + url.PathEscape(jobID),
	})
	if !res.Success {
		return res
	}

	t.mu.Lock()
	delete(t.jobs, jobID)
	t.mu.Unlock()
	t.logger.WithFields(logrus.Fields{"job_id": jobID, "bytes": len(res.Data)}).Info("bulk results downloaded")
	return res
}

// Tracked returns the number of jobs currently held.
func (t *BulkJobTracker) Tracked() int {
	t.sweep()
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// settle marks a terminal job as notified and returns the address to notify,
// or "" when nothing is due. Callers hold t.mu.
func (t *BulkJobTracker) settle(tj *trackedJob) string {
	if !tj.job.IsTerminal() || tj.notified {
		return ""
	}
	tj.notified = true
	if t.notifier == nil {
		return ""
	}
	return tj.notifyEmail
}

func (t *BulkJobTracker) notify(ctx context.Context, recipient string, job bulkjob.Job) {
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := t.notifier.NotifyJobFinished(nctx, recipient, job); err != nil {
			t.logger.WithFields(logrus.Fields{"job_id": job.ID, "status": job.Status()}).WithError(err).Warn("bulk job notification failed")
		}
	}()
}

func (t *BulkJobTracker) sweep() {
	cutoff := t.now().Add(-t.retention)
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, tj := range t.jobs {
		if tj.trackedAt.Before(cutoff) {
			delete(t.jobs, id)
		}
	}
}

// decodeJob reads a job from a submit or status response. The registry
// names the id "requestId" on some endpoints; fallbackID fills a missing id.
func decodeJob(raw json.RawMessage, fallbackID string) (bulkjob.Job, *envelope.APIError) {
	var w struct {
		bulkjob.Wire
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return bulkjob.Job{}, envelope.NewError(envelope.CodeDecodeError, err.Error(), nil)
	}
	if w.ID == "" {
		w.ID = w.RequestID
	}
	if w.ID == "" {
		w.ID = fallbackID
	}
	job, err := bulkjob.FromWire(w.Wire)
	if err != nil {
		return bulkjob.Job{}, envelope.NewError(envelope.CodeDecodeError, err.Error(), nil)
	}
	return job, nil
}

var _ ports.BulkJobTracker = (*BulkJobTracker)(nil)
