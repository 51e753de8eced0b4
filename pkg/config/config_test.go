package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "plain", cfg.Index.IDFStrategy)
	assert.True(t, cfg.Index.Stem)
	assert.Equal(t, 0.85, cfg.Rank.Damping)
	assert.Equal(t, 100, cfg.Rank.MaxIter)
	assert.Equal(t, 10, cfg.Search.TopKPerTerm)
	assert.InDelta(t, 1.0, cfg.Search.CosineWeight+cfg.Search.RankWeight, 1e-9)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
index:
  dataDir: /tmp/ix
  idfStrategy: smooth
rank:
  damping: 0.9
search:
  topKPerTerm: 25
redis:
  cacheTTL: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ix", cfg.Index.DataDir)
	assert.Equal(t, "smooth", cfg.Index.IDFStrategy)
	assert.Equal(t, 0.9, cfg.Rank.Damping)
	assert.Equal(t, 25, cfg.Search.TopKPerTerm)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)

	// Untouched sections keep their defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad idf strategy", "index:\n  idfStrategy: exotic\n"},
		{"damping too high", "rank:\n  damping: 1.0\n"},
		{"damping zero", "rank:\n  damping: 0\n"},
		{"non-positive topK", "search:\n  topKPerTerm: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CS_SERVER_PORT", "9999")
	t.Setenv("CS_INDEX_IDF_STRATEGY", "smooth")
	t.Setenv("CS_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("CS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "smooth", cfg.Index.IDFStrategy)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", p.DSN())
}
