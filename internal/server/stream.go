package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	// subscriberBuffer is the number of events a slow client may lag behind
	// before events are dropped for it.
	subscriberBuffer = 10
	keepAlive        = 30 * time.Second
)

// ProgressEvent is the payload of one SSE message.
type ProgressEvent struct {
	JobID       string    `json:"jobId"`
	State       JobState  `json:"state"`
	Evaluations int       `json:"evaluations"`
	BestCost    float64   `json:"bestCost"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventBroadcaster fans progress events out to the SSE clients of each job
// and remembers the latest event per job for clients that join late.
type EventBroadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[chan ProgressEvent]struct{}
	latest map[string]ProgressEvent
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		subs:   make(map[string]map[chan ProgressEvent]struct{}),
		latest: make(map[string]ProgressEvent),
	}
}

// Subscribe registers a client for jobID. The returned channel starts with
// the latest event, if any. Calling cancel closes the channel.
func (eb *EventBroadcaster) Subscribe(jobID string) (events <-chan ProgressEvent, cancel func()) {
	ch := make(chan ProgressEvent, subscriberBuffer)

	eb.mu.Lock()
	set := eb.subs[jobID]
	if set == nil {
		set = make(map[chan ProgressEvent]struct{})
		eb.subs[jobID] = set
	}
	set[ch] = struct{}{}
	if last, ok := eb.latest[jobID]; ok {
		ch <- last
	}
	eb.mu.Unlock()

	slog.Debug("SSE client subscribed", "job_id", jobID)

	var once sync.Once
	return ch, func() {
		once.Do(func() { eb.remove(jobID, ch) })
	}
}

func (eb *EventBroadcaster) remove(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	set := eb.subs[jobID]
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(eb.subs, jobID)
	}
	slog.Debug("SSE client unsubscribed", "job_id", jobID)
}

// Subscribers returns the number of clients listening to jobID.
func (eb *EventBroadcaster) Subscribers(jobID string) int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.subs[jobID])
}

// Broadcast records event as the latest of its job and hands it to every
// subscriber without blocking. Clients whose buffer is full miss it.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.latest[event.JobID] = event
	for ch := range eb.subs[event.JobID] {
		select {
		case ch <- event:
		default:
			slog.Warn("SSE client lagging, event dropped", "job_id", event.JobID, "evaluations", event.Evaluations)
		}
	}
}

// sseWriter writes Server-Sent Events and flushes after each one.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (s sseWriter) event(e ProgressEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

func (s sseWriter) ping() {
	fmt.Fprint(s.w, ": ping\n\n")
	s.f.Flush()
}

// handleJobStream handles GET /api/v1/jobs/:id/stream. The first event is
// the current job state; the stream ends once the job is done.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	out := sseWriter{w: w, f: flusher}

	events, cancel := s.jobManager.broadcaster.Subscribe(jobID)
	defer cancel()

	if err := out.event(progressOf(job)); err != nil {
		slog.Error("Failed to write initial SSE event", "job_id", jobID, "error", err)
		return
	}
	if job.State.Done() {
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("SSE client disconnected", "job_id", jobID)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := out.event(e); err != nil {
				slog.Error("Failed to write SSE event", "job_id", jobID, "error", err)
				return
			}
			if e.State.Done() {
				return
			}
		case <-ticker.C:
			out.ping()
		}
	}
}
