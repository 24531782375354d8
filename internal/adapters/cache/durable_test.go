package cache_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/somacore/soma/internal/adapters/cache"
	model "github.com/somacore/soma/internal/domain/model"
)

func openTestDurable(t *testing.T) (*cache.Durable, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scores.db")
	dur, err := cache.OpenDurable(path)
	require.NoError(t, err)
	return dur, path
}

func TestDurableRoundTrip(t *testing.T) {
	dur, _ := openTestDurable(t)
	defer dur.Close()
	ctx := context.Background()

	key := keyFor("2026-03-10", model.ScoreRecovery)
	want := model.Score{
		Kind:       model.ScoreRecovery,
		Day:        key.Day,
		Overall:    77,
		ComputedAt: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		Components: []model.Component{
			{Name: "hrv", Weight: 0.50, Normalized: 80, Contribution: 40, Raw: 1.04, Complete: true},
		},
		DataComplete: false,
	}

	require.NoError(t, dur.Put(ctx, key, want, want.ComputedAt))

	got, ok, err := dur.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = dur.Get(ctx, keyFor("2026-03-10", model.ScoreSleep))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDurableUpsert(t *testing.T) {
	dur, _ := openTestDurable(t)
	defer dur.Close()
	ctx := context.Background()

	key := keyFor("2026-03-10", model.ScoreSleep)
	first := scoreFor(key.Day, key.Kind, 55)
	second := scoreFor(key.Day, key.Kind, 71)

	require.NoError(t, dur.Put(ctx, key, first, first.ComputedAt))
	require.NoError(t, dur.Put(ctx, key, second, second.ComputedAt))

	got, ok, err := dur.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 71, got.Overall)

	n, err := dur.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDurableDelete(t *testing.T) {
	dur, _ := openTestDurable(t)
	defer dur.Close()
	ctx := context.Background()

	key := keyFor("2026-03-10", model.ScoreRecovery)
	require.NoError(t, dur.Put(ctx, key, scoreFor(key.Day, key.Kind, 60), time.Now()))
	require.NoError(t, dur.Delete(ctx, key))

	_, ok, err := dur.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a no-op, not an error.
	require.NoError(t, dur.Delete(ctx, key))
}

func TestDurableListRecent(t *testing.T) {
	dur, _ := openTestDurable(t)
	defer dur.Close()
	ctx := context.Background()

	days := []string{"2026-03-01", "2026-03-03", "2026-03-02", "2026-03-05"}
	for i, d := range days {
		key := keyFor(d, model.ScoreRecovery)
		require.NoError(t, dur.Put(ctx, key, scoreFor(key.Day, key.Kind, 50+i), time.Now()))
	}
	// A different kind must not leak into the listing.
	other := keyFor("2026-03-04", model.ScoreSleep)
	require.NoError(t, dur.Put(ctx, other, scoreFor(other.Day, other.Kind, 90), time.Now()))

	got, err := dur.ListRecent(ctx, model.ScoreRecovery, 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, model.DayKey("2026-03-05"), got[0].Day)
	assert.Equal(t, model.DayKey("2026-03-03"), got[1].Day)
	assert.Equal(t, model.DayKey("2026-03-02"), got[2].Day)
	assert.Equal(t, model.DayKey("2026-03-01"), got[3].Day)

	page, err := dur.ListRecent(ctx, model.ScoreRecovery, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, model.DayKey("2026-03-03"), page[0].Day)
	assert.Equal(t, model.DayKey("2026-03-02"), page[1].Day)
}

func TestDurableSurvivesReopen(t *testing.T) {
	dur, path := openTestDurable(t)
	ctx := context.Background()

	key := keyFor("2026-03-10", model.ScoreRecovery)
	require.NoError(t, dur.Put(ctx, key, scoreFor(key.Day, key.Kind, 83), time.Now()))
	require.NoError(t, dur.Close())

	reopened, err := cache.OpenDurable(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 83, got.Overall)
}
