package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handshake-scraper/internal/domain"
	"handshake-scraper/internal/locator"
)

func TestAppendDeduplicatesByURL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer db.Close()

	rec := domain.NewJobRecord("https://x/job-search/1")
	rec.Set(locator.FieldJobTitle, "Intern")

	require.NoError(t, db.Append(rec))
	// same posting rediscovered on a later page
	require.NoError(t, db.Append(rec))

	other := domain.NewJobRecord("https://x/job-search/2")
	require.NoError(t, db.Append(other))

	n, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFinalizeIdempotentOnEmptyDB(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	require.NoError(t, db.Finalize())
}
