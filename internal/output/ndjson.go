// Package output renders CLI results as NDJSON records or styled text.
package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/vburojevic/adjust/internal/domain"
)

// SchemaVersion is stamped on every NDJSON record.
const SchemaVersion = 1

// ErrorOutput reports a failed command.
type ErrorOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// StateOutput is the persisted session state.
type StateOutput struct {
	Type                string   `json:"type"`
	SchemaVersion       int      `json:"schemaVersion"`
	UUID                string   `json:"uuid"`
	Enabled             bool     `json:"enabled"`
	EventCount          int      `json:"event_count"`
	SessionCount        int      `json:"session_count"`
	SubsessionCount     int      `json:"subsession_count"`
	SessionLengthSecs   float64  `json:"session_length_seconds"`
	TimeSpentSecs       float64  `json:"time_spent_seconds"`
	LastIntervalSecs    *float64 `json:"last_interval_seconds,omitempty"`
	CreatedAt           string   `json:"created_at,omitempty"`
	LastActivity        string   `json:"last_activity,omitempty"`
	AttributionTracker  string   `json:"attribution_tracker,omitempty"`
	AttributionNetwork  string   `json:"attribution_network,omitempty"`
	AttributionCampaign string   `json:"attribution_campaign,omitempty"`
}

// PackageOutput is one queued package.
type PackageOutput struct {
	Type          string            `json:"type"`
	SchemaVersion int               `json:"schemaVersion"`
	Position      int               `json:"position"`
	ID            string            `json:"id"`
	Kind          string            `json:"kind"`
	Path          string            `json:"path"`
	Suffix        string            `json:"suffix,omitempty"`
	CreatedAt     string            `json:"created_at,omitempty"`
	Parameters    map[string]string `json:"parameters,omitempty"`
}

// ResultOutput summarizes a tracking command.
type ResultOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Command       string `json:"command"`
	Pending       int    `json:"pending"`
	Drained       bool   `json:"drained"`
	Offline       bool   `json:"offline,omitempty"`
}

// NDJSONWriter writes one JSON object per line.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer on w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

// Write encodes v as a single line.
func (w *NDJSONWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(v)
}

// WriteError writes an error record. Only the first hint is kept.
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	out := ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	return w.Write(out)
}

// WriteState writes the session state. A nil state writes nothing.
func (w *NDJSONWriter) WriteState(s *domain.ActivityState, a *domain.Attribution) error {
	if s == nil {
		return nil
	}
	return w.Write(NewStateOutput(s, a))
}

// WritePackages writes one record per package, head first.
func (w *NDJSONWriter) WritePackages(pkgs []*domain.ActivityPackage) error {
	for i, p := range pkgs {
		if err := w.Write(NewPackageOutput(i, p)); err != nil {
			return err
		}
	}
	return nil
}

// WriteResult writes the summary of a tracking command.
func (w *NDJSONWriter) WriteResult(command string, pending int, offline bool) error {
	return w.Write(ResultOutput{
		Type:          "result",
		SchemaVersion: SchemaVersion,
		Command:       command,
		Pending:       pending,
		Drained:       pending == 0,
		Offline:       offline,
	})
}

// NewStateOutput converts the domain state into its record form.
func NewStateOutput(s *domain.ActivityState, a *domain.Attribution) StateOutput {
	out := StateOutput{
		Type:              "state",
		SchemaVersion:     SchemaVersion,
		UUID:              s.UUID,
		Enabled:           s.Enabled,
		EventCount:        s.EventCount,
		SessionCount:      s.SessionCount,
		SubsessionCount:   s.SubsessionCount,
		SessionLengthSecs: s.SessionLength.Seconds(),
		TimeSpentSecs:     s.TimeSpent.Seconds(),
		CreatedAt:         formatTime(s.CreatedAt),
		LastActivity:      formatTime(s.LastActivity),
	}
	if s.LastInterval != nil {
		secs := s.LastInterval.Seconds()
		out.LastIntervalSecs = &secs
	}
	if a != nil {
		out.AttributionTracker = a.TrackerName
		out.AttributionNetwork = a.Network
		out.AttributionCampaign = a.Campaign
	}
	return out
}

// NewPackageOutput converts a queued package into its record form.
func NewPackageOutput(position int, p *domain.ActivityPackage) PackageOutput {
	out := PackageOutput{
		Type:          "package",
		SchemaVersion: SchemaVersion,
		Position:      position,
		ID:            p.ID,
		Kind:          string(p.Kind),
		Path:          p.Path,
		Suffix:        p.Suffix,
		Parameters:    p.ParametersCopy(),
	}
	if p.CreatedAt > 0 {
		out.CreatedAt = formatTime(p.BuiltAt())
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
