package health

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Entry is the outcome of one registered check within a Report.
type Entry struct {
	Name   string
	Tags   []string
	Result Result
}

// Report is the immutable outcome of one evaluation.
//
// Status is always the most severe entry status, or StatusHealthy when there
// are no entries. Accessors return copies.
type Report struct {
	id          string
	status      Status
	message     string
	entries     []Entry
	duration    time.Duration
	generatedAt time.Time
}

// newReport folds entries into a Report. entries must already be in
// registration order and is owned by the Report afterwards.
func newReport(entries []Entry, duration time.Duration) Report {
	status := StatusHealthy
	for _, e := range entries {
		status = Worse(status, e.Result.Status)
	}

	return Report{
		id:          uuid.NewString(),
		status:      status,
		message:     summarize(status, entries),
		entries:     entries,
		duration:    duration,
		generatedAt: time.Now(),
	}
}

// summarize describes the first entry carrying the dominant status.
func summarize(status Status, entries []Entry) string {
	if len(entries) == 0 {
		return "no checks selected"
	}
	if status == StatusHealthy {
		return fmt.Sprintf("all %d checks passed", len(entries))
	}
	for _, e := range entries {
		if e.Result.Status == status {
			return fmt.Sprintf("%s is %s: %s", e.Name, status, e.Result.Message)
		}
	}
	return status.String()
}

// ID returns a unique identifier for this evaluation.
func (r Report) ID() string { return r.id }

// Status returns the overall status.
func (r Report) Status() Status { return r.status }

// Message describes the overall status.
func (r Report) Message() string { return r.message }

// Duration returns the total evaluation time.
func (r Report) Duration() time.Duration { return r.duration }

// GeneratedAt returns when the report was assembled.
func (r Report) GeneratedAt() time.Time { return r.generatedAt }

// Len returns the number of entries.
func (r Report) Len() int { return len(r.entries) }

// Entries returns a deep copy of the entries in registration order. Nested
// maps and slices in Details are copied too.
func (r Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		e.Tags = slices.Clone(e.Tags)
		e.Result.Details = cloneDetails(e.Result.Details)
		out[i] = e
	}
	return out
}

// Entry returns a deep copy of the entry for name.
func (r Report) Entry(name string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			e.Tags = slices.Clone(e.Tags)
			e.Result.Details = cloneDetails(e.Result.Details)
			return e, true
		}
	}
	return Entry{}, false
}

// ReportDocument is the serialized form of a Report.
type ReportDocument struct {
	ID          string          `json:"id" yaml:"id"`
	Status      Status          `json:"status" yaml:"status"`
	Message     string          `json:"message" yaml:"message"`
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	Duration    string          `json:"duration" yaml:"duration"`
	Entries     []EntryDocument `json:"entries" yaml:"entries"`
}

// EntryDocument is the serialized form of an Entry.
type EntryDocument struct {
	Name      string         `json:"name" yaml:"name"`
	Tags      []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Status    Status         `json:"status" yaml:"status"`
	Message   string         `json:"message" yaml:"message"`
	Duration  string         `json:"duration" yaml:"duration"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Details   map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Failure   string         `json:"failure,omitempty" yaml:"failure,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Document returns the serialized form of r.
func (r Report) Document() ReportDocument {
	doc := ReportDocument{
		ID:          r.id,
		Status:      r.status,
		Message:     r.message,
		GeneratedAt: r.generatedAt.UTC(),
		Duration:    r.duration.String(),
		Entries:     make([]EntryDocument, 0, len(r.entries)),
	}
	for _, e := range r.entries {
		doc.Entries = append(doc.Entries, entryDocument(e))
	}
	return doc
}

func entryDocument(e Entry) EntryDocument {
	d := EntryDocument{
		Name:      e.Name,
		Tags:      slices.Clone(e.Tags),
		Status:    e.Result.Status,
		Message:   e.Result.Message,
		Duration:  e.Result.Duration.String(),
		Timestamp: e.Result.Timestamp.UTC(),
		Details:   encodableDetails(e.Result.Details),
	}
	if e.Result.Error != nil {
		d.Failure = KindOf(e.Result.Error).String()
		d.Error = e.Result.Error.Error()
	}
	return d
}

// cloneDetails copies details and any maps or slices nested inside them.
func cloneDetails(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneDetails(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]string:
		return maps.Clone(v)
	case []string:
		return slices.Clone(v)
	case []int:
		return slices.Clone(v)
	case []float64:
		return slices.Clone(v)
	}
	return v
}

// encodableDetails returns a copy of details in which every value JSON
// cannot encode, such as NaN or a channel, is replaced by its fmt.Sprint
// form. One malformed detail must not cost the whole document.
func encodableDetails(details map[string]any) map[string]any {
	out := cloneDetails(details)
	for k, v := range out {
		if _, err := json.Marshal(v); err != nil {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Document())
}

// MarshalYAML implements yaml.Marshaler.
func (r Report) MarshalYAML() (any, error) {
	return r.Document(), nil
}
