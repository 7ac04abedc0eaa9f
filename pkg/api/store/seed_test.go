package store_test

import (
	"context"
	"testing"

	"github.com/ethpandaops/qahub/pkg/api/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_PopulatesEmptyTables(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, store.DefaultSeedData()))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, &store.TableCounts{
		Tests:     5,
		Bugs:      2,
		TestCases: 2,
		Reports:   0,
	}, counts)

	names, err := s.DistinctTestNames(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultTestNames, names)
}

func TestSeed_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, store.DefaultSeedData()))
	require.NoError(t, s.Seed(ctx, store.DefaultSeedData()))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts.Tests)
	assert.Equal(t, int64(2), counts.Bugs)
	assert.Equal(t, int64(2), counts.TestCases)
}

func TestSeed_SkipsNonEmptyTables(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTest(ctx, &store.TestRecord{
		Name: "Existing", Status: store.StatusFailed, Duration: 4000,
	}))

	require.NoError(t, s.Seed(ctx, store.DefaultSeedData()))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Tests, "non-empty table is not seeded")
	assert.Equal(t, int64(2), counts.Bugs, "empty tables are still seeded")
}

func TestSeed_ReseedsAfterClear(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, store.DefaultSeedData()))

	_, err := s.DeleteAllTests(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Seed(ctx, store.DefaultSeedData()))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts.Tests)
}

func TestSeed_NilData(t *testing.T) {
	s := setupTestStore(t)

	require.NoError(t, s.Seed(context.Background(), nil))
}

func TestDefaultSeedData(t *testing.T) {
	data := store.DefaultSeedData()

	require.Len(t, data.Tests, 5)
	assert.Equal(t, "Login with valid credentials", data.Tests[0].Name)
	assert.Equal(t, 245, data.Tests[0].Duration)

	for _, rec := range data.Tests {
		assert.Equal(t, store.StatusPassed, rec.Status)
	}

	require.Len(t, data.Bugs, 2)
	assert.Equal(t, store.SeverityCritical, data.Bugs[1].Severity)
	assert.Empty(t, data.Reports)
}
