package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultDecisionWindow, cfg.DecisionWindow)
	assert.True(t, cfg.CancelOnDisconnect)
}

func TestMergeEnv(t *testing.T) {
	cfg := Default()
	err := cfg.mergeEnv(envFrom(map[string]string{
		"HTTP_ADDR":            ":9090",
		"REDIS_DB":             "3",
		"CORS_ORIGINS":         "http://a.test, http://b.test,",
		"DECISION_WINDOW":      "15s",
		"WAIT_TIMEOUT":         "1m",
		"CANCEL_ON_DISCONNECT": "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.DecisionWindow)
	assert.Equal(t, time.Minute, cfg.WaitTimeout)
	assert.False(t, cfg.CancelOnDisconnect)
}

func TestMergeEnv_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"bad duration": {"SWEEP_INTERVAL": "soon"},
		"bad redis db": {"REDIS_DB": "zero"},
		"bad bool":     {"CANCEL_ON_DISCONNECT": "maybe"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			assert.Error(t, cfg.mergeEnv(envFrom(env)))
		})
	}
}

func TestMergeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matching.yaml")
	content := "http_addr: \":7070\"\ndecision_window: 45s\ncors_origins:\n  - http://ui.test\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Default()
	require.NoError(t, cfg.mergeFile(path))

	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, 45*time.Second, cfg.DecisionWindow)
	assert.Equal(t, []string{"http://ui.test"}, cfg.CORSOrigins)
	assert.Equal(t, DefaultWaitTimeout, cfg.WaitTimeout, "unset keys keep their defaults")
}

func TestMergeFile_Missing(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.mergeFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DecisionWindow = 0
	cfg.HTTPAddr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decision_window")
	assert.Contains(t, err.Error(), "http_addr")
}
