// Package queue schedules and runs drawing submissions on asynq.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeSubmit pushes an uploaded drawing to the translation service.
const TypeSubmit = "drawing:submit"

// SubmitPayload is the body of a TypeSubmit task.
type SubmitPayload struct {
	DrawingID string `json:"drawing_id"`
}

func NewSubmitTask(drawingID string) (*asynq.Task, error) {
	if drawingID == "" {
		return nil, fmt.Errorf("drawing id is required")
	}
	b, err := json.Marshal(SubmitPayload{DrawingID: drawingID})
	if err != nil {
		return nil, fmt.Errorf("marshal submit payload: %w", err)
	}
	return asynq.NewTask(TypeSubmit, b), nil
}

// ParseSubmitPayload decodes a TypeSubmit task. Malformed payloads are
// wrapped with asynq.SkipRetry.
func ParseSubmitPayload(t *asynq.Task) (SubmitPayload, error) {
	var p SubmitPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode submit payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.DrawingID == "" {
		return p, fmt.Errorf("submit payload without drawing id: %w", asynq.SkipRetry)
	}
	return p, nil
}
