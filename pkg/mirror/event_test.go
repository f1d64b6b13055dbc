package mirror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprintEvent() Event {
	return Event{
		ID:      "s1",
		Etag:    "\"etag-1\"",
		Summary: "Math 101",
		Start:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Reminders: []Reminder{
			{Method: "email", Minutes: 30},
			{Method: "popup", Minutes: 10},
		},
	}
}

func TestEvent_FingerprintIgnoresReminderOrder(t *testing.T) {
	a := fingerprintEvent()
	b := fingerprintEvent()
	b.Reminders = []Reminder{
		{Method: "popup", Minutes: 10},
		{Method: "email", Minutes: 30},
	}

	fpA, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB)
}

func TestEvent_FingerprintIgnoresEtagAndID(t *testing.T) {
	a := fingerprintEvent()
	b := fingerprintEvent()
	b.ID = "different"
	b.Etag = "\"etag-2\""

	fpA, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB)
}

func TestEvent_FingerprintChangesWithContent(t *testing.T) {
	a := fingerprintEvent()
	b := fingerprintEvent()
	b.Location = "Room 4"

	fpA, err := a.Fingerprint()
	require.NoError(t, err)
	fpB, err := b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB)
}

func TestEvent_MirrorPayloadStripsIdentity(t *testing.T) {
	payload := fingerprintEvent().MirrorPayload()

	assert.Empty(t, payload.ID)
	assert.Empty(t, payload.Etag)
	assert.Equal(t, "Math 101", payload.Summary)
	assert.Len(t, payload.Reminders, 2)
}

func TestEvent_IsRecurringMaster(t *testing.T) {
	master := Event{ID: "m1", Recurrence: []string{"RRULE:FREQ=WEEKLY"}}
	occurrence := Event{ID: "m1_20260302T090000Z", RecurringEventID: "m1"}
	single := Event{ID: "s1"}

	assert.True(t, master.IsRecurringMaster())
	assert.False(t, occurrence.IsRecurringMaster())
	assert.False(t, single.IsRecurringMaster())
}
