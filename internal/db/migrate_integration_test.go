//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/hisaabkitaab/hisaabkitaab/internal/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_IsIdempotentAndSeedsCategories(t *testing.T) {
	svc := dbtest.New(t)
	ctx := context.Background()

	require.NoError(t, svc.Migrate(ctx))

	var count int
	require.NoError(t, svc.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE account_id IS NULL`).Scan(&count))
	assert.Equal(t, 15, count)

	var other string
	require.NoError(t, svc.DB.QueryRowContext(ctx,
		`SELECT name_ur FROM categories WHERE account_id IS NULL AND name_en = 'Other'`).Scan(&other))
	assert.Equal(t, "دیگر", other)

	assert.Equal(t, "up", svc.Health(ctx)["status"])
}
