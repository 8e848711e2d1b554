package notify

import (
	"context"
	"sort"
	"sync"
)

// Recorder is an in-memory Scheduler. It keeps the currently scheduled
// requests per user and the full call log.
type Recorder struct {
	mu        sync.Mutex
	scheduled map[string]map[int64]Request
	calls     []Request
	// Err, when set, is returned from every call.
	Err error
}

func NewRecorder() *Recorder {
	return &Recorder{scheduled: map[string]map[int64]Request{}}
}

func (r *Recorder) Schedule(_ context.Context, userID string, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	if r.Err != nil {
		return r.Err
	}
	if r.scheduled[userID] == nil {
		r.scheduled[userID] = map[int64]Request{}
	}
	r.scheduled[userID][req.ID] = req
	return nil
}

func (r *Recorder) Cancel(_ context.Context, userID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Cancel(id))
	if r.Err != nil {
		return r.Err
	}
	delete(r.scheduled[userID], id)
	return nil
}

// Scheduled reports whether id is currently scheduled for userID.
func (r *Recorder) Scheduled(userID string, id int64) (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.scheduled[userID][id]
	return req, ok
}

// Pending returns the scheduled requests for userID ordered by id.
func (r *Recorder) Pending(userID string) []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Request, 0, len(r.scheduled[userID]))
	for _, req := range r.scheduled[userID] {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Recorder) Calls() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.calls...)
}
