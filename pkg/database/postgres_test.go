package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hostel-ops-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "hostel_ops", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=hostel_ops sslmode=disable", dsn)
}
