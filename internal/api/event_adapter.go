package api

import (
	"time"

	"invlearn/app"
	"invlearn/domain/core"
)

// Event types streamed over SSE
const (
	EventIteration = "iteration"
	EventFinished  = "finished"
)

// ProgressBroadcaster turns learning callbacks into SSE events
type ProgressBroadcaster struct {
	hub           *SSEHub
	maxIterations int
}

// NewProgressBroadcaster creates a broadcaster; maxIterations scales the
// progress fraction
func NewProgressBroadcaster(hub *SSEHub, maxIterations int) *ProgressBroadcaster {
	return &ProgressBroadcaster{hub: hub, maxIterations: maxIterations}
}

// Observe implements app.Observer
func (b *ProgressBroadcaster) Observe(id core.SessionID, it app.Iteration) {
	data := map[string]interface{}{
		"positives": it.Positives,
		"negatives": it.Negatives,
		"verdict":   it.Verdict.Status,
		"accuracy":  it.Accuracy,
	}
	if it.Verdict.Reason != "" {
		data["reason"] = it.Verdict.Reason
		data["trace_index"] = it.Verdict.TraceIndex
	}
	if it.Candidate != nil {
		data["candidate"] = it.Candidate.String()
	}
	b.hub.Broadcast(ProgressEvent{
		SessionID: id.String(),
		EventType: EventIteration,
		Iteration: it.Number,
		Progress:  b.progress(it.Number),
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Finished announces the end of a session
func (b *ProgressBroadcaster) Finished(r *app.Result, err error) {
	data := map[string]interface{}{"status": r.Status}
	if r.Readable != "" {
		data["invariant"] = r.Readable
	}
	if err != nil {
		data["error"] = err.Error()
	}
	b.hub.Broadcast(ProgressEvent{
		SessionID: r.SessionID.String(),
		EventType: EventFinished,
		Iteration: r.Iterations,
		Progress:  1,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func (b *ProgressBroadcaster) progress(iteration int) float64 {
	if b.maxIterations <= 0 {
		return 0
	}
	p := float64(iteration) / float64(b.maxIterations)
	if p > 1 {
		p = 1
	}
	return p
}
