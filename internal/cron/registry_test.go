package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopJob() Job {
	return JobFunc(func(context.Context) (Summary, error) { return nil, nil })
}

func TestRegistryStoresEntriesInOrder(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("a", time.Second, noopJob()))
	require.NoError(t, registry.Register("b", time.Minute, noopJob()))

	entries := registry.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, time.Minute, entries[1].Interval)

	// callers get a copy
	entries[0].Name = "mutated"
	assert.Equal(t, "a", registry.Entries()[0].Name)
}

func TestRegistryRejectsDuplicatesAndBadInput(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("ledger", time.Second, noopJob()))

	assert.Error(t, registry.Register("ledger", time.Second, noopJob()))
	assert.Error(t, registry.Register(" ", time.Second, noopJob()))
	assert.Error(t, registry.Register("zero", 0, noopJob()))
	assert.Error(t, registry.Register("nil", time.Second, nil))
	assert.Len(t, registry.Entries(), 1)
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("payments", 30*time.Second, noopJob()))

	entry, ok := registry.Lookup("payments")
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, entry.Interval)

	_, ok = registry.Lookup("missing")
	assert.False(t, ok)
}
