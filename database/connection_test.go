package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5433", User: "svc", Password: "pw", DBName: "flashsell"}
	assert.Equal(t, "host=db port=5433 user=svc password=pw dbname=flashsell sslmode=disable", cfg.DSN())
}

func TestConnectRejectsNonNumericPort(t *testing.T) {
	_, err := Connect(Config{Host: "db", Port: "postgres"})
	assert.True(t, IsValidation(err))
}
