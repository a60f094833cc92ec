package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/domain/ledgertest"
)

func TestPostgresStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("bank_ledger"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(Postgres, dsn, discardLogger()))

	db, err := Open(Postgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Each case gets a clean schema.
	ledgertest.Run(t, func(t *testing.T) domain.Ledger {
		_, err := db.ExecContext(ctx, `TRUNCATE transactions, accounts RESTART IDENTITY`)
		require.NoError(t, err)
		return NewStore(db, Postgres, discardLogger())
	})
}
