package bulkjob

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/landregistry"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	ErrUnknownStatus     = errors.New("unknown bulk job status")
	ErrMissingResults    = errors.New("completed bulk job carries no results")
	ErrMissingID         = errors.New("bulk job has no id")
	ErrInvalidTransition = errors.New("invalid bulk job transition")
)

// ValidTransitions returns the statuses a job may move to from s, not
// counting s itself. A pending job may reach either terminal state between
// two polls; only moving backwards or leaving a terminal state is refused.
func (s Status) ValidTransitions() []Status {
	switch s {
	case StatusPending:
		return []Status{StatusProcessing, StatusCompleted, StatusFailed}
	case StatusProcessing:
		return []Status{StatusCompleted, StatusFailed}
	default:
		return []Status{}
	}
}

// IsValidTransition reports whether a poll may move a job from s to next.
// Observing the same status again is always allowed.
func (s Status) IsValidTransition(next Status) bool {
	if s == next {
		return true
	}
	return slices.Contains(s.ValidTransitions(), next)
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// State is the closed set of job states. Only the types in this package
// implement it.
type State interface {
	Status() Status
	sealed()
}

type Pending struct{}

type Processing struct{}

// Completed holds the batch results. Errors lists per-record failures that
// did not fail the job as a whole.
type Completed struct {
	Results landregistry.BulkSearchResults
	Errors  []string
}

type Failed struct {
	Errors []string
}

func (Pending) Status() Status    { return StatusPending }
func (Processing) Status() Status { return StatusProcessing }
func (Completed) Status() Status  { return StatusCompleted }
func (Failed) Status() Status     { return StatusFailed }

func (Pending) sealed()    {}
func (Processing) sealed() {}
func (Completed) sealed()  {}
func (Failed) sealed()     {}

// Job is a server-side batch operation as last reported by the registry.
type Job struct {
	ID          string
	SubmittedAt time.Time
	CompletedAt *time.Time
	State       State
}

func (j Job) Status() Status {
	if j.State == nil {
		return StatusPending
	}
	return j.State.Status()
}

func (j Job) IsTerminal() bool { return j.Status().IsTerminal() }

// Results returns the batch results when the job has completed.
func (j Job) Results() (landregistry.BulkSearchResults, bool) {
	c, ok := j.State.(Completed)
	if !ok {
		return landregistry.BulkSearchResults{}, false
	}
	return c.Results, true
}

// Errors returns accumulated record or job errors, if any.
func (j Job) Errors() []string {
	switch s := j.State.(type) {
	case Completed:
		return s.Errors
	case Failed:
		return s.Errors
	}
	return nil
}

// Advance applies a freshly polled snapshot to j. The registry is the only
// source of status; Advance only refuses snapshots that break the state
// machine or belong to another job.
func (j Job) Advance(next Job) (Job, error) {
	if next.ID != j.ID {
		return j, fmt.Errorf("%w: snapshot for %q applied to %q", ErrInvalidTransition, next.ID, j.ID)
	}
	if !j.Status().IsValidTransition(next.Status()) {
		return j, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status(), next.Status())
	}
	if next.SubmittedAt.IsZero() {
		next.SubmittedAt = j.SubmittedAt
	}
	return next, nil
}

// Clone returns a deep copy so callers cannot reach tracked state.
func (j Job) Clone() Job {
	b, err := json.Marshal(j)
	if err != nil {
		return j
	}
	var out Job
	if err := json.Unmarshal(b, &out); err != nil {
		return j
	}
	return out
}

// Wire is the JSON shape exchanged with the registry and with consumers.
type Wire struct {
	ID          string                          `json:"id"`
	Status      Status                          `json:"status"`
	SubmittedAt time.Time                       `json:"submittedAt"`
	CompletedAt *time.Time                      `json:"completedAt,omitempty"`
	Results     *landregistry.BulkSearchResults `json:"results,omitempty"`
	Errors      []string                        `json:"errors,omitempty"`
}

// FromWire builds a Job, rejecting shapes the state machine cannot hold.
// A missing status is read as pending.
func FromWire(w Wire) (Job, error) {
	if w.ID == "" {
		return Job{}, ErrMissingID
	}
	if w.Status == "" {
		w.Status = StatusPending
	}
	if !w.Status.valid() {
		return Job{}, fmt.Errorf("%w: %q", ErrUnknownStatus, w.Status)
	}
	job := Job{ID: w.ID, SubmittedAt: w.SubmittedAt, CompletedAt: w.CompletedAt}
	switch w.Status {
	case StatusPending:
		job.State = Pending{}
	case StatusProcessing:
		job.State = Processing{}
	case StatusCompleted:
		if w.Results == nil {
			return Job{}, ErrMissingResults
		}
		job.State = Completed{Results: *w.Results, Errors: w.Errors}
	case StatusFailed:
		job.State = Failed{Errors: w.Errors}
	}
	return job, nil
}

func (j Job) Wire() Wire {
	w := Wire{
		ID:          j.ID,
		Status:      j.Status(),
		SubmittedAt: j.SubmittedAt,
		CompletedAt: j.CompletedAt,
		Errors:      j.Errors(),
	}
	if r, ok := j.Results(); ok {
		w.Results = &r
	}
	return w
}

func (j Job) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Wire())
}

func (j *Job) UnmarshalJSON(b []byte) error {
	var w Wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	job, err := FromWire(w)
	if err != nil {
		return err
	}
	*j = job
	return nil
}

// Handle is returned by a successful submission.
type Handle struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func (j Job) Handle() Handle {
	return Handle{ID: j.ID, Status: j.Status(), SubmittedAt: j.SubmittedAt}
}
