package e2e_test

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	pgOnce      sync.Once
	pgDSN       string
	pgStartErr  error
	pgTerminate func()
)

// getSharedPostgresDatabase returns the DSN of a PostgreSQL container shared
// by every E2E test. The container is terminated from TestMain.
func getSharedPostgresDatabase(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	pgOnce.Do(func() {
		ctx := context.Background()

		container, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("storegate"),
			pgcontainer.WithUsername("storegate"),
			pgcontainer.WithPassword("storegate"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			pgStartErr = err
			return
		}

		pgTerminate = func() {
			_ = testcontainers.TerminateContainer(container)
		}

		pgDSN, pgStartErr = container.ConnectionString(ctx, "sslmode=disable")
	})

	if pgStartErr != nil {
		t.Fatalf("failed to start postgres container: %v", pgStartErr)
	}

	return pgDSN
}
