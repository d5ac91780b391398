package correlate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"argus/core"
	"argus/storage"
)

func TestLoaderLoad(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		{ID: "recent", CreatedDate: now.Add(-30 * time.Minute)},
		{ID: "stale", CreatedDate: now.Add(-2 * time.Hour)},
	}
	store.Endpoints = []core.Endpoint{{ID: "ep-1"}}
	store.EndpointEvents = []core.EndpointEvent{
		{ID: "ee-recent", Timestamp: now.Add(-10 * time.Minute)},
		{ID: "ee-stale", Timestamp: now.Add(-3 * time.Hour)},
	}
	store.Rules = []core.CorrelationRule{{ID: "r1", Name: "Rule", Enabled: true}}

	loader := NewLoader(store, testConfig(), zap.NewNop().Sugar())
	ds, err := loader.Load(context.Background(), 1, now)
	require.NoError(t, err)

	require.Len(t, ds.SecurityEvents, 1)
	assert.Equal(t, "recent", ds.SecurityEvents[0].ID)
	require.Len(t, ds.EndpointEvents, 1)
	assert.Equal(t, "ee-recent", ds.EndpointEvents[0].ID)
	assert.Len(t, ds.Endpoints, 1)
	assert.Len(t, ds.Rules, 1)
	assert.Equal(t, now.Add(-time.Hour), ds.Cutoff)
}

func TestLoaderDefaultWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	loader := NewLoader(storage.NewMockStore(), testConfig(), zap.NewNop().Sugar())

	ds, err := loader.Load(context.Background(), 0, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Hour), ds.Cutoff, "zero window applies the configured default")
}

func TestLoaderFailureDropsAllResults(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{{ID: "e1", CreatedDate: time.Now()}}
	store.ErrRules = errors.New("cursor timeout")

	loader := NewLoader(store, testConfig(), zap.NewNop().Sugar())
	ds, err := loader.Load(context.Background(), 1, time.Now())
	require.Error(t, err)
	assert.Nil(t, ds)
	assert.Contains(t, err.Error(), "correlation_rules")
}
