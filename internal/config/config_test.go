package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Game.RoundsTotal = 0
	cfg.Game.InitialCash = -5
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rounds_total")
	assert.Contains(t, err.Error(), "initial_cash")
	assert.Contains(t, err.Error(), "server: port")
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestSimModeSkipsInfraValidation(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "sim"
	cfg.Postgres.Host = ""
	cfg.Redis.Addr = ""
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.Archive.SecretKey = "hunter2"
	cfg.Server.ModeratorKey = "hunter2"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Archive.SecretKey)
	assert.Equal(t, "***", red.Server.ModeratorKey)
	assert.Equal(t, "hunter2", cfg.Postgres.Password, "original untouched")
}
