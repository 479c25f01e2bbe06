package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 5432, User: "ledger", Password: `it's\secret`, DBName: "bank"}
	assert.Equal(t,
		`host=localhost port=5432 user=ledger password='it\'s\\secret' dbname=bank sslmode=disable TimeZone=UTC`,
		cfg.DSN(),
	)

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
