package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/otpas-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "otpas", Password: "secret", Name: "otpas", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=otpas password=secret dbname=otpas sslmode=disable", dsn)
}

func TestConfigurePoolAppliesLimits(t *testing.T) {
	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { _ = db.Close() })

	configurePool(db, config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: time.Minute})

	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
