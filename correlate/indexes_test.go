package correlate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"argus/core"
)

func TestBuildIndexes(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ds := &Dataset{
		SecurityEvents: []core.SecurityEvent{
			{ID: "e1", IPAddress: "10.0.0.1", UserEmail: "a@corp.example"},
			{ID: "e2", IPAddress: "10.0.0.1"},
			{ID: "e3", UserEmail: "a@corp.example"},
			{ID: "e4"},
		},
		Endpoints: []core.Endpoint{
			{ID: "ep-1", LastIP: "10.0.0.1"},
			{ID: "ep-2"},
		},
		BlockedIPs: []core.BlockedIP{
			{IPAddress: "10.0.0.1", Active: true},
			{IPAddress: "10.0.0.2", Active: true, BlockedUntil: now.Add(-time.Hour)},
			{IPAddress: "10.0.0.3", Active: false},
		},
	}

	idx := BuildIndexes(ds, now)

	assert.Len(t, idx.EventsByIP["10.0.0.1"], 2)
	assert.Len(t, idx.EventsByUser["a@corp.example"], 2)
	assert.Len(t, idx.EndpointsByIP["10.0.0.1"], 1)

	_, blocked := idx.BlockedIPs["10.0.0.1"]
	assert.True(t, blocked, "active block with no expiry")
	_, blocked = idx.BlockedIPs["10.0.0.2"]
	assert.False(t, blocked, "expired block")
	_, blocked = idx.BlockedIPs["10.0.0.3"]
	assert.False(t, blocked, "inactive block")
}

func TestIndexesKeyAccess(t *testing.T) {
	ds := &Dataset{
		SecurityEvents: []core.SecurityEvent{
			{ID: "e1", IPAddress: "10.0.0.1"},
			{ID: "e2", UserEmail: "a@corp.example"},
		},
	}
	idx := BuildIndexes(ds, time.Now())

	assert.Len(t, idx.EventsForKey(core.CorrelationKeyIP, "10.0.0.1"), 1)
	assert.Len(t, idx.EventsForKey(core.CorrelationKeyUser, "a@corp.example"), 1)
	assert.Nil(t, idx.EventsForKey("hostname", "anything"))

	assert.Equal(t, []string{"10.0.0.1"}, idx.KeysForType(core.CorrelationKeyIP))
	assert.Equal(t, []string{"a@corp.example"}, idx.KeysForType(core.CorrelationKeyUser))
	assert.Empty(t, idx.KeysForType("hostname"))
}
