package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: docverify
    user: docverify
  redis:
    address: localhost:6379
storage:
  bucket: test-bucket
`

// ==========================
// Loader Tests
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, ":9090", cfg.HTTP.MetricsAddr)
	assert.Equal(t, "hybrid", cfg.OCR.Mode)
	assert.Equal(t, 75, cfg.OCR.Thresholds.QueryMin)
	assert.Equal(t, 70, cfg.OCR.Thresholds.Review)
	assert.Equal(t, 90, cfg.OCR.Thresholds.HighConfidence)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, 2000, cfg.Queue.BackoffBase)
	assert.Equal(t, "* * * * *", cfg.Window.CronSpec)
	assert.Equal(t, 3600, cfg.Storage.PresignTTL)
}

func TestLoadFromFile_ExplicitValuesWin(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig+`
ocr:
  mode: queries
  experiment:
    enabled: true
    queries_percent: 20
    coordinate_percent: 10
queue:
  max_attempts: 5
`))
	require.NoError(t, err)

	assert.Equal(t, "queries", cfg.OCR.Mode)
	assert.True(t, cfg.OCR.Experiment.Enabled)
	assert.Equal(t, 20, cfg.OCR.Experiment.QueriesPercent)
	assert.Equal(t, 10, cfg.OCR.Experiment.CoordinatePercent)
	assert.Equal(t, 5, cfg.Queue.MaxAttempts)
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name: "missing postgres host",
			content: `
database:
  postgres:
    database: docverify
    user: docverify
  redis:
    address: localhost:6379
storage:
  bucket: b
`,
			errPart: "database.postgres.host",
		},
		{
			name: "missing bucket",
			content: `
database:
  postgres:
    host: localhost
    database: docverify
    user: docverify
  redis:
    address: localhost:6379
`,
			errPart: "storage.bucket",
		},
		{
			name:    "invalid ocr mode",
			content: minimalConfig + "\nocr:\n  mode: freestyle\n",
			errPart: "ocr.mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfigFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestGetDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, Database: "docverify",
		User: "svc", Password: "secret", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=svc password=secret dbname=docverify sslmode=disable",
		p.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, GetDuration(2000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
