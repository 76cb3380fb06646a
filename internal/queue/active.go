// Package queue provides admission control for concurrently dispatched
// generations across all providers.
package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"daygen/internal/domain"
)

const (
	// MaxParallelGenerations bounds the number of in-flight generations.
	// Dispatch attempts beyond the cap are rejected before any network call;
	// there is no internal queueing behind it.
	MaxParallelGenerations = 5

	// LongPollThreshold is how long the oldest in-flight job may run before
	// the "still working" notice is raised for it.
	LongPollThreshold = 90 * time.Second
)

// NoticeMessage is the copy shown with the long-poll notice. It deliberately
// suggests trying another prompt instead of claiming the remote job stopped.
const NoticeMessage = "Still working on it. This can take up to ~2 minutes. Feel free to try another prompt in the meantime."

// Job is one in-flight queue entry. ID is a locally generated token, not the
// provider job id, because it must exist before submission.
type Job struct {
	ID        string
	Prompt    string
	Model     string
	StartedAt time.Time
}

// Notice flags the oldest in-flight job as long-running.
type Notice struct {
	JobID   string
	Message string
}

// Active tracks concurrently in-flight generations and enforces the
// parallelism bound. All mutations are mutex-guarded; unlike the
// single-threaded event loop this design comes from, callers here may sit on
// arbitrary goroutines.
type Active struct {
	mu   sync.Mutex
	jobs []Job
	now  func() time.Time
}

// NewActive returns an empty queue.
func NewActive() *Active {
	return &Active{now: time.Now}
}

// Enqueue admits a new generation, or fails with ErrAtCapacity before any
// submission work happens.
func (a *Active) Enqueue(prompt, model string) (Job, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.jobs) >= MaxParallelGenerations {
		return Job{}, fmt.Errorf("queue: %w", domain.ErrAtCapacity)
	}
	job := Job{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		Model:     model,
		StartedAt: a.now(),
	}
	a.jobs = append(a.jobs, job)
	return job, nil
}

// Resolve removes an entry on terminal resolution (success, failure, or
// cancellation). It reports whether the id was present.
func (a *Active) Resolve(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, job := range a.jobs {
		if job.ID == id {
			a.jobs = append(a.jobs[:i], a.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// Cancel removes an entry on user cancellation and clears any notice bound to
// it. This is local bookkeeping only; the remote provider job is not stopped.
func (a *Active) Cancel(id string) bool {
	return a.Resolve(id)
}

// HasCapacity reports whether another generation may be dispatched.
func (a *Active) HasCapacity() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.jobs) < MaxParallelGenerations
}

// Len returns the number of in-flight generations.
func (a *Active) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.jobs)
}

// Jobs returns a copy of the in-flight entries in dispatch order.
func (a *Active) Jobs() []Job {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Job, len(a.jobs))
	copy(out, a.jobs)
	return out
}

// Notice reports the long-poll notice for the queue head, when armed. The
// threshold is always measured against the current oldest entry, so resolving
// the head re-arms the timer for the next oldest job.
func (a *Active) Notice() (Notice, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.jobs) == 0 {
		return Notice{}, false
	}
	head := a.jobs[0]
	if a.now().Sub(head.StartedAt) < LongPollThreshold {
		return Notice{}, false
	}
	return Notice{JobID: head.ID, Message: NoticeMessage}, true
}
