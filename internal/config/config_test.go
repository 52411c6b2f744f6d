package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MAX_DURATION_MINUTES", "SAME_DAY_ONLY", "SENSITIVE_TAGS", "REDIS_ADDR", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, 210*time.Minute, cfg.MaxDuration)
	assert.True(t, cfg.SameDayOnly)
	assert.Equal(t, "nearest", cfg.PairSelection)
	assert.Equal(t, "last", cfg.CategoryMode)
	assert.Empty(t, cfg.SensitiveTags)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("MAX_DURATION_MINUTES", "90")
	t.Setenv("SAME_DAY_ONLY", "false")
	t.Setenv("CATEGORY_MODE", "largest")
	t.Setenv("SENSITIVE_TAGS", "office, lobby,,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ENGINE_WORKERS", "4")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, 90*time.Minute, cfg.MaxDuration)
	assert.False(t, cfg.SameDayOnly)
	assert.Equal(t, "largest", cfg.CategoryMode)
	assert.Equal(t, []string{"office", "lobby"}, cfg.SensitiveTags)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 4, cfg.EngineWorkers)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_DURATION_MINUTES", "abc")
	t.Setenv("STRICT_COVERAGE", "maybe")

	cfg := Load()
	assert.Equal(t, 210*time.Minute, cfg.MaxDuration)
	assert.False(t, cfg.StrictCoverage)
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "UTC"}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Timezone = "local"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "Not/AZone"
	loc, err = cfg.Location()
	assert.Nil(t, loc)
	assert.ErrorContains(t, err, `invalid TIMEZONE "Not/AZone"`)
}
