// Package models defines the client-side view of drawings served by the
// drawkeeper API and kept in the local watch history.
package models

import "time"

// Lifecycle states as reported by the server.
const (
	StateUploading  = "uploading"
	StatePending    = "pending"
	StateProcessing = "processing"
	StateSuccess    = "success"
	StateFailed     = "failed"
)

// Terminal reports whether state is final.
func Terminal(state string) bool {
	return state == StateSuccess || state == StateFailed
}

// Drawing mirrors the drawing resource of the API.
type Drawing struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id,omitempty"`
	Name          string    `json:"name"`
	FileName      string    `json:"file_name"`
	Size          int64     `json:"size"`
	Description   string    `json:"description,omitempty"`
	URN           string    `json:"urn,omitempty"`
	State         string    `json:"estado"`
	Progress      int       `json:"progreso"`
	StatusMessage string    `json:"estado_mensaje,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Status is one reconciliation result.
type Status struct {
	DrawingID       string   `json:"drawingId,omitempty"`
	URN             string   `json:"urn,omitempty"`
	State           string   `json:"status"`
	ProgressPercent int      `json:"progressPercent"`
	Message         string   `json:"message,omitempty"`
	Messages        []string `json:"messages,omitempty"`
}

// Watch is a drawing remembered by drawctl between runs.
type Watch struct {
	DrawingID string
	FileName  string
	State     string
	Progress  int
	Message   string
	UpdatedAt time.Time
}
