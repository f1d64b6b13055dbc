package mirror

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/teambition/rrule-go"
)

type stubChange struct {
	seq     int
	eventID string
}

type stubCalendar struct {
	events  map[string]*Event
	changes []stubChange
}

// StubProvider is an in-memory calendar backend. It keeps a per-calendar
// change log so the incremental feed, sync tokens, pagination, tombstones,
// and RRULE expansion all behave like a real provider.
type StubProvider struct {
	seq       int
	calendars map[string]*stubCalendar

	// PageSize bounds one change-feed page; small by default so tests
	// exercise pagination.
	PageSize int

	// Call counters for target-side writes issued by the engine.
	Creates int
	Updates int
	Deletes int

	expireNextToken bool
}

func NewStubProvider(calendarIDs ...string) *StubProvider {
	p := &StubProvider{calendars: map[string]*stubCalendar{}}
	for _, id := range calendarIDs {
		p.calendars[id] = &stubCalendar{events: map[string]*Event{}}
	}
	return p
}

func (p *StubProvider) calendar(calendarID string) (*stubCalendar, error) {
	cal, ok := p.calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("unknown calendar: %s", calendarID)
	}
	return cal, nil
}

// Seed stores an event as if an external organizer wrote it, recording a
// change-feed entry. Re-seeding an existing id simulates a source edit.
func (p *StubProvider) Seed(calendarID string, ev Event) {
	cal, err := p.calendar(calendarID)
	if err != nil {
		panic(err)
	}
	p.seq++
	if ev.Etag == "" {
		ev.Etag = "et" + strconv.Itoa(p.seq)
	}
	stored := ev
	cal.events[ev.ID] = &stored
	cal.changes = append(cal.changes, stubChange{seq: p.seq, eventID: ev.ID})
}

// SeedQuietly stores an event without recording a change-feed entry,
// simulating an item the incremental feed never reported.
func (p *StubProvider) SeedQuietly(calendarID string, ev Event) {
	cal, err := p.calendar(calendarID)
	if err != nil {
		panic(err)
	}
	p.seq++
	if ev.Etag == "" {
		ev.Etag = "et" + strconv.Itoa(p.seq)
	}
	stored := ev
	cal.events[ev.ID] = &stored
}

// Cancel tombstones an event as if it was deleted at the source.
func (p *StubProvider) Cancel(calendarID, eventID string) {
	cal, err := p.calendar(calendarID)
	if err != nil {
		panic(err)
	}
	ev, ok := cal.events[eventID]
	if !ok {
		return
	}
	p.seq++
	ev.Cancelled = true
	ev.Etag = "et" + strconv.Itoa(p.seq)
	cal.changes = append(cal.changes, stubChange{seq: p.seq, eventID: eventID})
}

// ExpireSyncToken makes the next incremental Changes call fail with
// ErrSyncTokenExpired, once.
func (p *StubProvider) ExpireSyncToken() {
	p.expireNextToken = true
}

func (p *StubProvider) ResetCounters() {
	p.Creates, p.Updates, p.Deletes = 0, 0, 0
}

// LiveEvents returns the non-cancelled events of a calendar, sorted by id.
func (p *StubProvider) LiveEvents(calendarID string) []Event {
	cal, err := p.calendar(calendarID)
	if err != nil {
		panic(err)
	}
	var events []Event
	for _, ev := range cal.events {
		if !ev.Cancelled {
			events = append(events, *ev)
		}
	}
	sortEvents(events)
	return events
}

func (p *StubProvider) Changes(ctx context.Context, calendarID string, opts ChangesOptions) (ChangesPage, error) {
	cal, err := p.calendar(calendarID)
	if err != nil {
		return ChangesPage{}, err
	}

	if opts.SyncToken != "" && p.expireNextToken {
		p.expireNextToken = false
		return ChangesPage{}, ErrSyncTokenExpired
	}

	items, err := p.changedSince(cal, opts.SyncToken)
	if err != nil {
		return ChangesPage{}, err
	}

	offset := 0
	if opts.PageToken != "" {
		offset, err = strconv.Atoi(opts.PageToken)
		if err != nil {
			return ChangesPage{}, fmt.Errorf("malformed page token: %q", opts.PageToken)
		}
	}
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = 2
	}

	page := ChangesPage{}
	end := offset + pageSize
	if end >= len(items) {
		end = len(items)
		page.NextSyncToken = strconv.Itoa(p.seq)
	} else {
		page.NextPageToken = strconv.Itoa(end)
	}
	page.Items = items[offset:end]
	return page, nil
}

func (p *StubProvider) changedSince(cal *stubCalendar, syncToken string) ([]Event, error) {
	// Empty token: full scan of current, non-tombstoned events.
	if syncToken == "" {
		var items []Event
		for _, ev := range cal.events {
			if ev.Cancelled {
				continue
			}
			items = append(items, *ev)
		}
		sortEvents(items)
		return items, nil
	}

	since, err := strconv.Atoi(syncToken)
	if err != nil {
		return nil, ErrSyncTokenExpired
	}
	seen := map[string]bool{}
	var items []Event
	for _, change := range cal.changes {
		if change.seq <= since || seen[change.eventID] {
			continue
		}
		seen[change.eventID] = true
		if ev, ok := cal.events[change.eventID]; ok {
			items = append(items, *ev)
		}
	}
	sortEvents(items)
	return items, nil
}

func (p *StubProvider) ListWindow(ctx context.Context, calendarID string, window TimeWindow) ([]Event, error) {
	cal, err := p.calendar(calendarID)
	if err != nil {
		return nil, err
	}
	var items []Event
	for _, ev := range cal.events {
		if ev.Cancelled {
			continue
		}
		if ev.IsRecurringMaster() {
			occurrences, err := expandMaster(ev, window)
			if err != nil {
				return nil, err
			}
			items = append(items, occurrences...)
			continue
		}
		if window.Contains(ev.Start) {
			items = append(items, *ev)
		}
	}
	sortEvents(items)
	return items, nil
}

func (p *StubProvider) Get(ctx context.Context, calendarID, eventID string) (Event, error) {
	cal, err := p.calendar(calendarID)
	if err != nil {
		return Event{}, err
	}
	if ev, ok := cal.events[eventID]; ok {
		return *ev, nil
	}
	// Occurrence ids of a recurring series are addressable reads too.
	if idx := strings.Index(eventID, "_"); idx > 0 {
		if master, ok := cal.events[eventID[:idx]]; ok && !master.Cancelled {
			occurrences, err := expandMaster(master, TimeWindow{})
			if err != nil {
				return Event{}, err
			}
			for _, occurrence := range occurrences {
				if occurrence.ID == eventID {
					return occurrence, nil
				}
			}
		}
	}
	return Event{}, ErrNotFound
}

func (p *StubProvider) Instances(ctx context.Context, calendarID, masterID string, window TimeWindow) ([]Event, error) {
	cal, err := p.calendar(calendarID)
	if err != nil {
		return nil, err
	}
	master, ok := cal.events[masterID]
	if !ok {
		return nil, ErrNotFound
	}
	if master.Cancelled {
		return nil, nil
	}
	return expandMaster(master, window)
}

func (p *StubProvider) Create(ctx context.Context, calendarID string, event Event) (Event, error) {
	cal, err := p.calendar(calendarID)
	if err != nil {
		return Event{}, err
	}
	p.seq++
	event.ID = "gen" + strconv.Itoa(p.seq)
	event.Etag = "et" + strconv.Itoa(p.seq)
	stored := event
	cal.events[event.ID] = &stored
	cal.changes = append(cal.changes, stubChange{seq: p.seq, eventID: event.ID})
	p.Creates++
	return event, nil
}

func (p *StubProvider) Update(ctx context.Context, calendarID, eventID string, event Event) (Event, error) {
	cal, err := p.calendar(calendarID)
	if err != nil {
		return Event{}, err
	}
	existing, ok := cal.events[eventID]
	if !ok || existing.Cancelled {
		return Event{}, ErrNotFound
	}
	p.seq++
	event.ID = eventID
	event.Etag = "et" + strconv.Itoa(p.seq)
	stored := event
	cal.events[eventID] = &stored
	cal.changes = append(cal.changes, stubChange{seq: p.seq, eventID: eventID})
	p.Updates++
	return event, nil
}

func (p *StubProvider) Delete(ctx context.Context, calendarID, eventID string) error {
	cal, err := p.calendar(calendarID)
	if err != nil {
		return err
	}
	existing, ok := cal.events[eventID]
	if !ok || existing.Cancelled {
		return ErrNotFound
	}
	p.seq++
	existing.Cancelled = true
	cal.changes = append(cal.changes, stubChange{seq: p.seq, eventID: eventID})
	p.Deletes++
	return nil
}

// expandMaster turns a recurring master into concrete occurrences within the
// window, with Google-style occurrence ids (masterID_YYYYMMDDTHHMMSSZ).
func expandMaster(master *Event, window TimeWindow) ([]Event, error) {
	lo := window.TimeMin
	if lo.IsZero() {
		lo = master.Start.AddDate(-1, 0, 0)
	}
	hi := window.TimeMax
	if hi.IsZero() {
		hi = master.Start.AddDate(2, 0, 0)
	}
	duration := master.End.Sub(master.Start)

	var occurrences []Event
	for _, line := range master.Recurrence {
		if !strings.HasPrefix(line, "RRULE:") {
			continue
		}
		option, err := rrule.StrToROption(strings.TrimPrefix(line, "RRULE:"))
		if err != nil {
			return nil, fmt.Errorf("could not parse recurrence rule %q: %w", line, err)
		}
		option.Dtstart = master.Start
		rule, err := rrule.NewRRule(*option)
		if err != nil {
			return nil, fmt.Errorf("could not build recurrence rule %q: %w", line, err)
		}
		for _, start := range rule.Between(lo, hi, true) {
			occurrence := master.MirrorPayload()
			occurrence.ID = fmt.Sprintf("%s_%s", master.ID, start.UTC().Format("20060102T150405Z"))
			occurrence.Etag = master.Etag
			occurrence.Start = start
			occurrence.End = start.Add(duration)
			occurrence.RecurringEventID = master.ID
			occurrences = append(occurrences, occurrence)
		}
	}
	return occurrences, nil
}

func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
}

// StubProviderFactory hands out a fixed provider regardless of profile.
type StubProviderFactory struct {
	Provider Provider
	Err      error
}

func (f *StubProviderFactory) ProviderFor(ctx context.Context, profileID int) (Provider, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Provider, nil
}

var _ Provider = (*StubProvider)(nil)
