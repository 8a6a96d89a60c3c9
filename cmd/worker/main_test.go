package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RequiresRedis(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/graphmail?sslmode=disable")
	t.Setenv("REDIS_URL", "")

	err := run("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}
