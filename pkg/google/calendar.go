package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/calmirror/calmirror/pkg/mirror"
	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

var ErrUnauthenticated = fmt.Errorf("profile is unauthenticated, authentication is required")

const (
	allDayDateFormat = "2006-01-02"
	changesPageSize  = 250
)

// Calendar adapts the Google Calendar API to the mirror.Provider contract.
// One instance serves all calendars reachable with the profile's credential.
type Calendar struct {
	service *gcal.Service
}

func newGoogleCalendar(service *gcal.Service) *Calendar {
	return &Calendar{service: service}
}

var _ mirror.Provider = (*Calendar)(nil)

func (c *Calendar) Changes(ctx context.Context, calendarID string, opts mirror.ChangesOptions) (mirror.ChangesPage, error) {
	call := c.service.Events.List(calendarID).
		ShowDeleted(true).
		MaxResults(changesPageSize)
	if opts.SyncToken != "" {
		call = call.SyncToken(opts.SyncToken)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	result, err := call.Context(ctx).Do()
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && gErr.Code == http.StatusGone {
			// Google invalidates sync tokens after a while, a full scan
			// is required.
			return mirror.ChangesPage{}, fmt.Errorf("sync token rejected by Google Calendar: %w", mirror.ErrSyncTokenExpired)
		}
		err := fmt.Errorf("unable to retrieve changes from Google Calendar: %v", err)
		log.Error(err)
		return mirror.ChangesPage{}, err
	}

	events := make([]mirror.Event, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, googleEventToEvent(item))
	}
	return mirror.ChangesPage{
		Items:         events,
		NextPageToken: result.NextPageToken,
		NextSyncToken: result.NextSyncToken,
	}, nil
}

func (c *Calendar) ListWindow(ctx context.Context, calendarID string, window mirror.TimeWindow) ([]mirror.Event, error) {
	call := c.service.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(changesPageSize)
	if !window.TimeMin.IsZero() {
		call = call.TimeMin(window.TimeMin.Format(time.RFC3339))
	}
	if !window.TimeMax.IsZero() {
		call = call.TimeMax(window.TimeMax.Format(time.RFC3339))
	}

	var events []mirror.Event
	pageToken := ""
	for {
		result, err := call.PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			err := fmt.Errorf("unable to retrieve events from Google Calendar: %v", err)
			log.Error(err)
			return nil, err
		}
		for _, item := range result.Items {
			events = append(events, googleEventToEvent(item))
		}
		if result.NextPageToken == "" {
			return events, nil
		}
		pageToken = result.NextPageToken
	}
}

func (c *Calendar) Get(ctx context.Context, calendarID, eventID string) (mirror.Event, error) {
	item, err := c.service.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return mirror.Event{}, mapEventError("retrieve", err)
	}
	return googleEventToEvent(item), nil
}

func (c *Calendar) Instances(ctx context.Context, calendarID, masterID string, window mirror.TimeWindow) ([]mirror.Event, error) {
	call := c.service.Events.Instances(calendarID, masterID).MaxResults(changesPageSize)
	if !window.TimeMin.IsZero() {
		call = call.TimeMin(window.TimeMin.Format(time.RFC3339))
	}
	if !window.TimeMax.IsZero() {
		call = call.TimeMax(window.TimeMax.Format(time.RFC3339))
	}

	var events []mirror.Event
	pageToken := ""
	for {
		result, err := call.PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			return nil, mapEventError("expand", err)
		}
		for _, item := range result.Items {
			events = append(events, googleEventToEvent(item))
		}
		if result.NextPageToken == "" {
			return events, nil
		}
		pageToken = result.NextPageToken
	}
}

func (c *Calendar) Create(ctx context.Context, calendarID string, event mirror.Event) (mirror.Event, error) {
	log.Debugf("Adding event %q to calendar: %s", event.Summary, calendarID)
	result, err := c.service.Events.Insert(calendarID, eventToGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		err := fmt.Errorf("unable to insert event in Google Calendar: %v", err)
		log.Error(err)
		return mirror.Event{}, err
	}
	return googleEventToEvent(result), nil
}

func (c *Calendar) Update(ctx context.Context, calendarID, eventID string, event mirror.Event) (mirror.Event, error) {
	result, err := c.service.Events.Update(calendarID, eventID, eventToGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return mirror.Event{}, mapEventError("update", err)
	}
	return googleEventToEvent(result), nil
}

func (c *Calendar) Delete(ctx context.Context, calendarID, eventID string) error {
	err := c.service.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return mapEventError("delete", err)
	}
	return nil
}

// mapEventError translates the Google API not-found family into
// mirror.ErrNotFound. 410 means the event was deleted earlier, which for
// point operations is the same outcome as never having existed.
func mapEventError(op string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && (gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone) {
		return fmt.Errorf("unable to %s event in Google Calendar: %w", op, mirror.ErrNotFound)
	}
	err = fmt.Errorf("unable to %s event in Google Calendar: %v", op, err)
	log.Error(err)
	return err
}

func googleEventToEvent(item *gcal.Event) mirror.Event {
	event := mirror.Event{
		ID:               item.Id,
		Etag:             item.Etag,
		Cancelled:        item.Status == "cancelled",
		Summary:          item.Summary,
		Description:      item.Description,
		Location:         item.Location,
		Transparency:     item.Transparency,
		Recurrence:       item.Recurrence,
		RecurringEventID: item.RecurringEventId,
	}
	// Tombstones in the change feed carry no times.
	event.Start, event.AllDay = parseEventDateTime(item.Start)
	event.End, _ = parseEventDateTime(item.End)
	if item.Reminders != nil && !item.Reminders.UseDefault {
		for _, override := range item.Reminders.Overrides {
			event.Reminders = append(event.Reminders, mirror.Reminder{
				Method:  override.Method,
				Minutes: override.Minutes,
			})
		}
	}
	return event
}

func parseEventDateTime(edt *gcal.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.Date != "" {
		t, err := time.Parse(allDayDateFormat, edt.Date)
		if err != nil {
			log.Warnf("unable to parse all-day date %q: %v", edt.Date, err)
			return time.Time{}, false
		}
		return t, true
	}
	t, err := time.Parse(time.RFC3339, edt.DateTime)
	if err != nil {
		log.Warnf("unable to parse event time %q: %v", edt.DateTime, err)
		return time.Time{}, false
	}
	return t, false
}

func eventToGoogleEvent(event mirror.Event) *gcal.Event {
	item := &gcal.Event{
		Summary:      event.Summary,
		Description:  event.Description,
		Location:     event.Location,
		Transparency: event.Transparency,
		Start:        formatEventDateTime(event.Start, event.AllDay),
		End:          formatEventDateTime(event.End, event.AllDay),
	}
	overrides := make([]*gcal.EventReminder, 0, len(event.Reminders))
	for _, reminder := range event.Reminders {
		overrides = append(overrides, &gcal.EventReminder{
			Method:  reminder.Method,
			Minutes: reminder.Minutes,
		})
	}
	item.Reminders = &gcal.EventReminders{
		UseDefault:      false,
		Overrides:       overrides,
		ForceSendFields: []string{"UseDefault"},
	}
	return item
}

func formatEventDateTime(t time.Time, allDay bool) *gcal.EventDateTime {
	if allDay {
		return &gcal.EventDateTime{Date: t.Format(allDayDateFormat)}
	}
	return &gcal.EventDateTime{DateTime: t.Format(time.RFC3339)}
}
