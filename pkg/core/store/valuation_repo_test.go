package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"finstat/pkg/core/statements"
	"finstat/pkg/core/valuation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(ticker string, at time.Time) *ValuationRun {
	p := valuation.DCFParams{WACC: 0.1, TerminalGrowth: 0.03, ForecastYears: 3, SharesOutstanding: statements.Num(10)}
	res, err := valuation.ProjectDCF(100, 0.05, p, 20)
	if err != nil {
		panic(err)
	}
	return &ValuationRun{
		Ticker:    ticker,
		Params:    p,
		Result:    res,
		CreatedAt: at,
	}
}

func TestValuationRepo_FileSaveAndList(t *testing.T) {
	dir := t.TempDir()
	repo := NewValuationRepo(nil, dir)
	assert.Equal(t, "file", repo.Backend())
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := sampleRun("aapl", base)
	second := sampleRun("AAPL", base.Add(time.Hour))
	other := sampleRun("MSFT", base.Add(2*time.Hour))
	for _, r := range []*ValuationRun{first, second, other} {
		require.NoError(t, repo.Save(ctx, r))
	}

	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, "AAPL", first.Ticker)
	assert.FileExists(t, filepath.Join(dir, "AAPL", first.ID.String()+".json"))

	runs, err := repo.List(ctx, "aapl", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, statements.Num(10), runs[0].Params.SharesOutstanding)
	assert.InDelta(t, second.Result.EnterpriseValue, runs[0].Result.EnterpriseValue, 1e-9)

	all, err := repo.List(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, other.ID, all[0].ID)
}

func TestValuationRepo_AssignsTimestamp(t *testing.T) {
	repo := NewValuationRepo(nil, t.TempDir())
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	run := sampleRun("X", time.Time{})
	require.NoError(t, repo.Save(context.Background(), run))
	assert.Equal(t, fixed, run.CreatedAt)
}

func TestValuationRepo_Get(t *testing.T) {
	repo := NewValuationRepo(nil, t.TempDir())
	ctx := context.Background()

	run := sampleRun("AAPL", time.Now())
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.False(t, got.Result.PriceTarget.IsMissing())

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestValuationRepo_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	repo := NewValuationRepo(nil, dir)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleRun("AAPL", time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL", "broken.json"), []byte("{"), 0644))

	runs, err := repo.List(ctx, "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestValuationRepo_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, InitDB(ctx, url))
	defer Close()

	repo := NewValuationRepo(GetPool(), "")
	assert.Equal(t, "postgres", repo.Backend())

	ticker := "T" + uuid.NewString()[:8]
	run := sampleRun(ticker, time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, repo.Save(ctx, run))

	runs, err := repo.List(ctx, ticker, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Params.ForecastYears, got.Params.ForecastYears)
}
