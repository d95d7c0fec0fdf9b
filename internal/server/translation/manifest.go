package translation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/drawkeeper/internal/server/models"
)

// ManifestStatus is the job status reported by the translation service.
type ManifestStatus string

const (
	ManifestPending    ManifestStatus = "pending"
	ManifestInProgress ManifestStatus = "inprogress"
	ManifestSuccess    ManifestStatus = "success"
	ManifestFailed     ManifestStatus = "failed"
	ManifestTimeout    ManifestStatus = "timeout"
)

// DefaultInProgress is reported for inprogress jobs whose progress text
// carries no percentage.
const DefaultInProgress = 50

// ParseManifestStatus maps a raw status onto the closed set.
func ParseManifestStatus(s string) (ManifestStatus, error) {
	switch st := ManifestStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ManifestPending, ManifestInProgress, ManifestSuccess, ManifestFailed, ManifestTimeout:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// Message is a diagnostic attached to a manifest or one of its derivatives.
type Message struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message any    `json:"message"`
}

// Text flattens the message, which the service sends either as a string or
// as a list of strings.
func (m Message) Text() string {
	switch v := m.Message.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return m.Code
	}
}

type Derivative struct {
	Status       string    `json:"status"`
	Progress     string    `json:"progress"`
	OutputType   string    `json:"outputType"`
	HasThumbnail string    `json:"hasThumbnail"`
	Messages     []Message `json:"messages"`
}

// Manifest is the subset of the job manifest the poller needs.
type Manifest struct {
	URN         string       `json:"urn"`
	Status      string       `json:"status"`
	Progress    string       `json:"progress"`
	Region      string       `json:"region"`
	Messages    []Message    `json:"messages"`
	Derivatives []Derivative `json:"derivatives"`
}

// Diagnostics collects the non-empty texts of the top-level and derivative
// messages, in order.
func (m *Manifest) Diagnostics() []string {
	var out []string
	add := func(msgs []Message) {
		for _, msg := range msgs {
			if t := strings.TrimSpace(msg.Text()); t != "" {
				out = append(out, t)
			}
		}
	}
	add(m.Messages)
	for _, d := range m.Derivatives {
		add(d.Messages)
	}
	return out
}

// Observation is a manifest mapped onto the drawing lifecycle.
type Observation struct {
	State    models.State
	Progress int
	Message  string
	Messages []string
}

// PendingObservation is what an absent manifest means: the job exists
// locally but the service has not picked it up.
func PendingObservation() Observation {
	return Observation{State: models.StatePending, Progress: models.ProgressPending}
}

// Observe maps the manifest status onto a lifecycle state and progress.
func Observe(m *Manifest) (Observation, error) {
	st, err := ParseManifestStatus(m.Status)
	if err != nil {
		return Observation{}, err
	}
	diags := m.Diagnostics()

	switch st {
	case ManifestPending:
		o := PendingObservation()
		o.Messages = diags
		return o, nil
	case ManifestInProgress:
		p, ok := ParseProgress(m.Progress)
		if !ok {
			p = DefaultInProgress
		}
		return Observation{State: models.StateProcessing, Progress: p, Messages: diags}, nil
	case ManifestSuccess:
		return Observation{State: models.StateSuccess, Progress: 100, Messages: diags}, nil
	default:
		msg := strings.Join(diags, "; ")
		if msg == "" {
			// never leave a failed drawing without a message
			msg = "translation " + string(st)
		}
		return Observation{State: models.StateFailed, Progress: 0, Message: msg, Messages: diags}, nil
	}
}

var percentRe = regexp.MustCompile(`(\d{1,3})\s*%`)

// ParseProgress extracts the percentage from progress text such as
// "25% complete". "complete" alone counts as 100.
func ParseProgress(s string) (int, bool) {
	if m := percentRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > 100 {
			return 0, false
		}
		return n, true
	}
	if strings.EqualFold(strings.TrimSpace(s), "complete") {
		return 100, true
	}
	return 0, false
}
