package google

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/calmirror/calmirror/pkg/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

func TestGoogleEventToEvent_TimedEvent(t *testing.T) {
	item := &gcal.Event{
		Id:           "ev1",
		Etag:         "\"etag-1\"",
		Status:       "confirmed",
		Summary:      "Math 101",
		Description:  "Weekly lecture",
		Location:     "Room 4",
		Transparency: "transparent",
		Start:        &gcal.EventDateTime{DateTime: "2026-03-02T09:00:00Z"},
		End:          &gcal.EventDateTime{DateTime: "2026-03-02T10:00:00Z"},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: 10},
				{Method: "email", Minutes: 30},
			},
		},
	}

	event := googleEventToEvent(item)

	assert.Equal(t, "ev1", event.ID)
	assert.Equal(t, "\"etag-1\"", event.Etag)
	assert.False(t, event.Cancelled)
	assert.Equal(t, "Math 101", event.Summary)
	assert.Equal(t, "Room 4", event.Location)
	assert.Equal(t, "transparent", event.Transparency)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), event.Start)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), event.End)
	assert.False(t, event.AllDay)
	assert.Equal(t, []mirror.Reminder{
		{Method: "popup", Minutes: 10},
		{Method: "email", Minutes: 30},
	}, event.Reminders)
}

func TestGoogleEventToEvent_AllDayEvent(t *testing.T) {
	item := &gcal.Event{
		Id:    "ev2",
		Start: &gcal.EventDateTime{Date: "2026-03-02"},
		End:   &gcal.EventDateTime{Date: "2026-03-03"},
	}

	event := googleEventToEvent(item)

	assert.True(t, event.AllDay)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), event.Start)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), event.End)
}

func TestGoogleEventToEvent_CancelledTombstone(t *testing.T) {
	item := &gcal.Event{
		Id:     "ev3",
		Status: "cancelled",
	}

	event := googleEventToEvent(item)

	assert.True(t, event.Cancelled)
	assert.True(t, event.Start.IsZero())
	assert.True(t, event.End.IsZero())
}

func TestGoogleEventToEvent_DefaultRemindersIgnored(t *testing.T) {
	item := &gcal.Event{
		Id: "ev4",
		Reminders: &gcal.EventReminders{
			UseDefault: true,
			Overrides:  []*gcal.EventReminder{{Method: "popup", Minutes: 5}},
		},
	}

	event := googleEventToEvent(item)

	assert.Empty(t, event.Reminders)
}

func TestGoogleEventToEvent_RecurringFields(t *testing.T) {
	master := googleEventToEvent(&gcal.Event{
		Id:         "m1",
		Recurrence: []string{"RRULE:FREQ=WEEKLY"},
	})
	occurrence := googleEventToEvent(&gcal.Event{
		Id:               "m1_20260302T090000Z",
		RecurringEventId: "m1",
	})

	assert.True(t, master.IsRecurringMaster())
	assert.False(t, occurrence.IsRecurringMaster())
	assert.Equal(t, "m1", occurrence.RecurringEventID)
}

func TestEventToGoogleEvent_TimedEvent(t *testing.T) {
	event := mirror.Event{
		Summary:      "Math 101",
		Location:     "Room 4",
		Start:        time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Transparency: "opaque",
		Reminders:    []mirror.Reminder{{Method: "popup", Minutes: 10}},
	}

	item := eventToGoogleEvent(event)

	assert.Equal(t, "2026-03-02T09:00:00Z", item.Start.DateTime)
	assert.Equal(t, "2026-03-02T10:00:00Z", item.End.DateTime)
	assert.Empty(t, item.Start.Date)
	require.NotNil(t, item.Reminders)
	assert.False(t, item.Reminders.UseDefault)
	assert.Contains(t, item.Reminders.ForceSendFields, "UseDefault")
	require.Len(t, item.Reminders.Overrides, 1)
	assert.Equal(t, int64(10), item.Reminders.Overrides[0].Minutes)
}

func TestEventToGoogleEvent_AllDayEvent(t *testing.T) {
	event := mirror.Event{
		Summary: "Conference",
		Start:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		AllDay:  true,
	}

	item := eventToGoogleEvent(event)

	assert.Equal(t, "2026-03-02", item.Start.Date)
	assert.Equal(t, "2026-03-03", item.End.Date)
	assert.Empty(t, item.Start.DateTime)
}

func TestEventConversion_RoundTripKeepsMirroredFields(t *testing.T) {
	original := mirror.Event{
		Summary:      "Math 101",
		Description:  "Weekly lecture",
		Location:     "Room 4",
		Start:        time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Transparency: "transparent",
		Reminders:    []mirror.Reminder{{Method: "email", Minutes: 30}},
	}

	converted := googleEventToEvent(eventToGoogleEvent(original))

	assert.Equal(t, original, converted.MirrorPayload())
}

func TestMapEventError(t *testing.T) {
	notFound := &googleapi.Error{Code: 404, Message: "Not Found"}
	gone := &googleapi.Error{Code: 410, Message: "Gone"}
	rateLimited := &googleapi.Error{Code: 403, Message: "Rate Limit Exceeded"}

	assert.ErrorIs(t, mapEventError("retrieve", notFound), mirror.ErrNotFound)
	assert.ErrorIs(t, mapEventError("delete", gone), mirror.ErrNotFound)
	assert.NotErrorIs(t, mapEventError("update", rateLimited), mirror.ErrNotFound)
	assert.NotErrorIs(t, mapEventError("update", errors.New("network down")), mirror.ErrNotFound)
}

func TestMapEventError_WrappedGoogleError(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", &googleapi.Error{Code: 404})
	assert.ErrorIs(t, mapEventError("retrieve", wrapped), mirror.ErrNotFound)
}
