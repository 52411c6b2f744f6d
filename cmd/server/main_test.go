package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis/losstime"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/config"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
)

func validConfig() *config.Config {
	return &config.Config{
		Timezone:      "UTC",
		MaxDuration:   losstime.DefaultMaxDuration,
		SameDayOnly:   true,
		PairSelection: "nearest",
		CategoryMode:  "last",
		EngineWorkers: 1,
	}
}

func TestCheckAnalysisConfig(t *testing.T) {
	sched, loc, err := checkAnalysisConfig(validConfig())
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
	assert.Len(t, sched.Shifts, 3)
}

func TestCheckAnalysisConfigRejects(t *testing.T) {
	badSchedule := filepath.Join(t.TempDir(), "schedule.yaml")
	require.NoError(t, os.WriteFile(badSchedule, []byte("shifts:\n  - label: Day\n    start: \"06:00\"\n    end: \"18:00\"\n"), 0o644))

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		want   string
	}{
		{"unknown selection", func(cfg *config.Config) { cfg.PairSelection = "random" }, "invalid analysis options"},
		{"unknown category mode", func(cfg *config.Config) { cfg.CategoryMode = "first" }, "invalid analysis options"},
		{"unknown time zone", func(cfg *config.Config) { cfg.Timezone = "Mars/Olympus" }, "invalid TIMEZONE"},
		{"schedule without full coverage", func(cfg *config.Config) { cfg.SchedulePath = badSchedule }, "no shift covers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			_, _, err := checkAnalysisConfig(cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCheckAnalysisConfigReportsConfigError(t *testing.T) {
	cfg := validConfig()
	cfg.PairSelection = "random"
	_, _, err := checkAnalysisConfig(cfg)
	var cerr *schedule.ConfigError
	assert.ErrorAs(t, err, &cerr)
}
