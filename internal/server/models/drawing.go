// Package models defines server-side data models persisted in the database.
package models

import (
	"errors"
	"time"
)

// ErrURNImmutable is returned when a drawing already carries a different urn.
var ErrURNImmutable = errors.New("urn already assigned")

// Drawing is a CAD file uploaded by an owner together with the state of its
// translation into a viewable format. The binary lives in blob storage under
// StorageKey; everything else is persisted in the drawings table.
type Drawing struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	ProjectID   string `json:"project_id,omitempty"`
	Name        string `json:"name"`
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	Description string `json:"description,omitempty"`
	StorageKey  string `json:"-"`

	// URN identifies the external translation job. Empty until the upload to
	// the translation service is finalized; immutable afterwards.
	URN       string `json:"urn,omitempty"`
	BucketKey string `json:"bucket_key,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`

	State         State  `json:"estado"`
	Progress      int    `json:"progreso"`
	StatusMessage string `json:"estado_mensaje,omitempty"`

	UploadedAt             time.Time  `json:"uploaded_at"`
	TranslationStartedAt   *time.Time `json:"translation_started_at,omitempty"`
	TranslationCompletedAt *time.Time `json:"translation_completed_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`

	// Version guards concurrent writers; every successful save increments it.
	Version int64 `json:"-"`
}

// ProgressPending is reported while the external job has not started yet.
const ProgressPending = 5

// MarkPending records the start of remote submission.
// It returns false if the drawing is already past pending.
func (d *Drawing) MarkPending(now time.Time) bool {
	if !d.State.CanTransition(StatePending) {
		return false
	}
	d.State = StatePending
	if d.Progress < ProgressPending {
		d.Progress = ProgressPending
	}
	if d.TranslationStartedAt == nil {
		t := now
		d.TranslationStartedAt = &t
	}
	return true
}

// AssignURN sets the external job reference and the object it was derived
// from. Assigning the same urn twice is a no-op.
func (d *Drawing) AssignURN(urn, bucketKey, objectKey string) error {
	if d.URN != "" && d.URN != urn {
		return ErrURNImmutable
	}
	d.URN = urn
	d.BucketKey = bucketKey
	d.ObjectKey = objectKey
	return nil
}

// MarkFailed moves the drawing to failed with a diagnostic message.
func (d *Drawing) MarkFailed(message string) bool {
	return d.ApplyStatus(StateFailed, 0, message, time.Time{})
}

// ApplyStatus folds an observed lifecycle state into the drawing and reports
// whether anything changed. Observations that would move the drawing
// backwards are ignored. While non-terminal, progress never decreases.
// success pins progress to 100 and records the completion time once;
// failed pins progress to 0 and stores message.
func (d *Drawing) ApplyStatus(state State, progress int, message string, now time.Time) bool {
	if !d.State.CanTransition(state) {
		return false
	}
	before := *d

	d.State = state
	switch state {
	case StateSuccess:
		d.Progress = 100
		d.StatusMessage = ""
		if d.TranslationCompletedAt == nil {
			t := now
			d.TranslationCompletedAt = &t
		}
	case StateFailed:
		d.Progress = 0
		d.StatusMessage = message
	default:
		p := clampProgress(progress)
		if p > d.Progress {
			d.Progress = p
		}
	}

	return before.State != d.State ||
		before.Progress != d.Progress ||
		before.StatusMessage != d.StatusMessage ||
		before.TranslationCompletedAt != d.TranslationCompletedAt
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
