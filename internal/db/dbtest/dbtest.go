//go:build integration

// Package dbtest starts a throwaway Postgres for repository tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	database "github.com/hisaabkitaab/hisaabkitaab/internal/db"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// New returns a migrated database backed by a postgres container that is
// terminated when the test finishes.
func New(t *testing.T) *database.DBService {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("hisaab"),
		postgres.WithUsername("hisaab"),
		postgres.WithPassword("hisaab"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	svc, err := database.NewDBService(ctx, connStr, zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := svc.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return svc
}
