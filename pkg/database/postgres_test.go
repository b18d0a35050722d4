package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/attendance-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "attendance", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=attendance sslmode=disable", dsn)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrations.ReadDir(migrationsDir)
	assert.NoError(t, err)
	assert.NotEmpty(t, entries)
}
