package mirror

import (
	"sort"
	"time"

	"github.com/calmirror/calmirror/pkg/fingerprint"
)

type Reminder struct {
	Method  string
	Minutes int64
}

// Event is the internal mirroring record. Provider payloads are converted to
// it once at the provider boundary so the engine never handles wire objects.
type Event struct {
	ID        string
	Etag      string
	Cancelled bool

	Summary      string
	Description  string
	Location     string
	Start        time.Time
	End          time.Time
	AllDay       bool
	Reminders    []Reminder
	Transparency string

	// Recurrence holds the raw recurrence rules of a recurring master.
	// A master is never mirrored itself, only its expanded occurrences.
	Recurrence []string
	// RecurringEventID links an expanded occurrence back to its master.
	RecurringEventID string
}

// IsRecurringMaster reports whether the event defines a recurring series
// rather than being a single event or a concrete occurrence.
func (e Event) IsRecurringMaster() bool {
	return len(e.Recurrence) > 0
}

// MirrorPayload strips provider identity, leaving only the content fields
// that are copied to the target calendar.
func (e Event) MirrorPayload() Event {
	return Event{
		Summary:      e.Summary,
		Description:  e.Description,
		Location:     e.Location,
		Start:        e.Start,
		End:          e.End,
		AllDay:       e.AllDay,
		Reminders:    e.Reminders,
		Transparency: e.Transparency,
	}
}

// Fingerprint digests the mirrored fields only. The etag is deliberately
// excluded: it changes on provider-side touches unrelated to mirrored
// content, and relying on it alone causes needless target writes.
func (e Event) Fingerprint() (string, error) {
	reminders := make([]map[string]any, 0, len(e.Reminders))
	sorted := make([]Reminder, len(e.Reminders))
	copy(sorted, e.Reminders)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Minutes != sorted[j].Minutes {
			return sorted[i].Minutes < sorted[j].Minutes
		}
		return sorted[i].Method < sorted[j].Method
	})
	for _, reminder := range sorted {
		reminders = append(reminders, map[string]any{
			"method":  reminder.Method,
			"minutes": reminder.Minutes,
		})
	}

	return fingerprint.Digest(map[string]any{
		"summary":      e.Summary,
		"description":  e.Description,
		"location":     e.Location,
		"start":        e.Start.UTC().Format(time.RFC3339),
		"end":          e.End.UTC().Format(time.RFC3339),
		"allDay":       e.AllDay,
		"reminders":    reminders,
		"transparency": e.Transparency,
	})
}
