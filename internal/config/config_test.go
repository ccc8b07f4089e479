package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, seating.DefaultRules(), cfg.Seating.Rules)
	assert.Equal(t, seating.AlgorithmRandom, cfg.Seating.Algorithm)
	assert.True(t, cfg.Seating.AutoBalance)
	assert.Empty(t, cfg.DB.URL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seating.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
seating:
  algorithm: snake
  auto_balance: false
  rules:
    max_tables: 20
    min_players_per_table: 5
    max_players_per_table: 8
    balance_threshold: 2
redis:
  addr: "cache:6379"
`), 0o600))

	t.Setenv("SEATING_CONFIG_PATH", path)
	t.Setenv("SEATING_MAX_PER_TABLE", "10")
	t.Setenv("SEATING_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, seating.AlgorithmSnake, cfg.Seating.Algorithm)
	assert.False(t, cfg.Seating.AutoBalance)
	assert.Equal(t, seating.Rules{MaxTables: 20, MinPlayersPerTable: 5, MaxPlayersPerTable: 10, BalanceThreshold: 2}, cfg.Seating.Rules)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoad_ReportsEveryBadValue(t *testing.T) {
	t.Setenv("SEATING_MAX_TABLES", "many")
	t.Setenv("SEATING_AUTO_BALANCE", "sometimes")

	_, err := Load()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorContains(t, err, "SEATING_MAX_TABLES")
	assert.ErrorContains(t, err, "SEATING_AUTO_BALANCE")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Seating.Algorithm = "roulette"
	cfg.Seating.Rules.MinPlayersPerTable = 10
	cfg.Seating.Rules.MaxPlayersPerTable = 9

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, seating.ErrUnknownAlgorithm)
	assert.ErrorIs(t, err, seating.ErrInvalidRule)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("SEATING_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.ErrorContains(t, err, "read config file")
}
