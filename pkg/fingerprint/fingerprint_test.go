package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_IndependentOfInsertionOrder(t *testing.T) {
	a := map[string]any{}
	a["summary"] = "Convex Optimization A"
	a["location"] = "Room 12"
	a["reminders"] = []map[string]any{{"method": "popup", "minutes": 10}}

	b := map[string]any{}
	b["reminders"] = []map[string]any{{"minutes": 10, "method": "popup"}}
	b["location"] = "Room 12"
	b["summary"] = "Convex Optimization A"

	digestA, err := Digest(a)
	require.NoError(t, err)
	digestB, err := Digest(b)
	require.NoError(t, err)

	assert.Equal(t, digestA, digestB)
}

func TestDigest_ChangesWithContent(t *testing.T) {
	base := map[string]any{"summary": "Lecture", "location": "Room 12"}
	changed := map[string]any{"summary": "Lecture", "location": "Room 13"}

	digestBase, err := Digest(base)
	require.NoError(t, err)
	digestChanged, err := Digest(changed)
	require.NoError(t, err)

	assert.NotEqual(t, digestBase, digestChanged)
}

func TestDigest_Deterministic(t *testing.T) {
	payload := map[string]any{"summary": "Lecture"}

	first, err := Digest(payload)
	require.NoError(t, err)
	second, err := Digest(payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}
