package pipeline

import (
	"encoding/json"
	"sync"
	"time"

	"git.home.luguber.info/inful/echopipe/internal/content"
)

// FailedRun is a batch entry whose run aborted with an error.
type FailedRun struct {
	Request   content.Request
	Iteration int
	Error     error
	Timestamp time.Time
}

// MarshalJSON encodes the request fields and the error message.
func (fr FailedRun) MarshalJSON() ([]byte, error) {
	msg := ""
	if fr.Error != nil {
		msg = fr.Error.Error()
	}
	return json.Marshal(struct {
		Input     map[string]string `json:"input_data"`
		Iteration int               `json:"iteration"`
		Error     string            `json:"error"`
		Timestamp time.Time         `json:"timestamp"`
	}{fr.Request.Input(), fr.Iteration, msg, fr.Timestamp})
}

// DeadLetterQueue stores failed batch entries for inspection or replay.
type DeadLetterQueue struct {
	mu     sync.RWMutex
	failed []FailedRun
}

// NewDeadLetterQueue creates a new DLQ.
func NewDeadLetterQueue() *DeadLetterQueue {
	return &DeadLetterQueue{failed: []FailedRun{}}
}

// Enqueue adds a failed run to the queue.
func (dlq *DeadLetterQueue) Enqueue(fr FailedRun) {
	dlq.mu.Lock()
	dlq.failed = append(dlq.failed, fr)
	dlq.mu.Unlock()
}

// GetAll returns all failed runs.
func (dlq *DeadLetterQueue) GetAll() []FailedRun {
	dlq.mu.RLock()
	defer dlq.mu.RUnlock()
	result := make([]FailedRun, len(dlq.failed))
	copy(result, dlq.failed)
	return result
}

// Clear removes all failed runs from the queue.
func (dlq *DeadLetterQueue) Clear() {
	dlq.mu.Lock()
	dlq.failed = []FailedRun{}
	dlq.mu.Unlock()
}

// Count returns the number of failed runs in the queue.
func (dlq *DeadLetterQueue) Count() int {
	dlq.mu.RLock()
	defer dlq.mu.RUnlock()
	return len(dlq.failed)
}
