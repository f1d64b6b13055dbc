package mirror

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by point reads, updates, and deletes when the
// event does not exist on the provider side.
var ErrNotFound = errors.New("calendar event not found")

// ErrSyncTokenExpired is returned by Changes when the resumption token is no
// longer usable and a full scan is required.
var ErrSyncTokenExpired = errors.New("calendar sync token expired")

// TimeWindow bounds a calendar listing. A zero TimeMin or TimeMax leaves
// that side unbounded.
type TimeWindow struct {
	TimeMin time.Time
	TimeMax time.Time
}

func (w TimeWindow) Contains(t time.Time) bool {
	if !w.TimeMin.IsZero() && t.Before(w.TimeMin) {
		return false
	}
	if !w.TimeMax.IsZero() && !t.Before(w.TimeMax) {
		return false
	}
	return true
}

type ChangesOptions struct {
	// SyncToken bounds the feed to changes since the token was issued.
	// Empty means a full scan from the beginning.
	SyncToken string
	// PageToken continues a paginated feed.
	PageToken string
}

type ChangesPage struct {
	Items []Event
	// NextPageToken continues the feed; empty on the terminal page.
	NextPageToken string
	// NextSyncToken is issued on the terminal page only.
	NextSyncToken string
}

// Provider is the calendar backend consumed by the reconciliation engine.
// Page and sync tokens are opaque and must be round-tripped unmodified.
type Provider interface {
	// Changes returns one page of the incremental change feed, including
	// cancelled items as tombstones. Returns ErrSyncTokenExpired when the
	// token is no longer usable.
	Changes(ctx context.Context, calendarID string, opts ChangesOptions) (ChangesPage, error)
	// ListWindow returns the concrete events within the window, recurring
	// masters expanded into occurrences.
	ListWindow(ctx context.Context, calendarID string, window TimeWindow) ([]Event, error)
	// Get fetches a single event by id. Cancelled events are returned with
	// their cancellation status set.
	Get(ctx context.Context, calendarID, eventID string) (Event, error)
	// Instances returns the concrete occurrences of one recurring series
	// within the window.
	Instances(ctx context.Context, calendarID, masterID string, window TimeWindow) ([]Event, error)
	Create(ctx context.Context, calendarID string, event Event) (Event, error)
	Update(ctx context.Context, calendarID, eventID string, event Event) (Event, error)
	Delete(ctx context.Context, calendarID, eventID string) error
}

// ProviderFactory yields a Provider authenticated for the given profile.
// A missing credential is a fatal per-subscription error, not retried.
type ProviderFactory interface {
	ProviderFor(ctx context.Context, profileID int) (Provider, error)
}
