package gormstore

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/domain/ledgertest"
)

func TestMySQLStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mysql container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "password",
				"MYSQL_DATABASE":      "bank_ledger",
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := Open(Config{
		Host:           host,
		Port:           portNum,
		User:           "root",
		Password:       "password",
		DBName:         "bank_ledger",
		LogLevel:       "silent",
		MaxOpenConns:   1, // FOREIGN_KEY_CHECKS is per session
		ConnectRetries: 10,
		RetryInterval:  time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.AutoMigrate())

	ledgertest.Run(t, func(t *testing.T) domain.Ledger {
		db := client.DB()
		require.NoError(t, db.Exec("SET FOREIGN_KEY_CHECKS = 0").Error)
		require.NoError(t, db.Exec("TRUNCATE TABLE transactions").Error)
		require.NoError(t, db.Exec("TRUNCATE TABLE accounts").Error)
		require.NoError(t, db.Exec("SET FOREIGN_KEY_CHECKS = 1").Error)
		return NewStore(client, logger)
	})
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3306, User: "ledger", Password: "secret", DBName: "bank_ledger"}

	assert.Equal(t, "ledger:secret@tcp(db:3306)/bank_ledger?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
}
