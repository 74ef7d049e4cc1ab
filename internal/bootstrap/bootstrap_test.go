package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartroute/smartroute/internal/config"
	"github.com/smartroute/smartroute/internal/routing/googlemaps"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Parser.DefaultYear = 2026
	return &cfg
}

func TestBuild_Defaults(t *testing.T) {
	app, err := Build(context.Background(), Options{Config: testConfig(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Planner)
	assert.Nil(t, app.Prediction)
	assert.Nil(t, app.DB)
	assert.Contains(t, app.Registry.Names(), googlemaps.ProviderName)

	intent, err := app.Planner.AnalyzePrompt(context.Background(), "İstanbul'dan Ankara'ya 12.02.2026")
	require.NoError(t, err)
	assert.Equal(t, []string{"İstanbul", "Ankara"}, intent.Stops())
}

func TestBuild_AIEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Enabled = true
	cfg.AI.BaseURL = "http://localhost:5000"

	app, err := Build(context.Background(), Options{Config: cfg, Logger: zerolog.Nop()})
	require.NoError(t, err)

	require.NotNil(t, app.Prediction)
	assert.Contains(t, app.Registry.Names(), "prediction")
}

func TestBuild_HolidayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
weekend_multiplier: 1.2
holidays:
  - {name: Şirket Günü, date: "2026-06-10", type: custom, multiplier: 1.1}
`), 0o600))

	cfg := testConfig()
	cfg.Holidays.File = path

	app, err := Build(context.Background(), Options{Config: cfg, Logger: zerolog.Nop()})
	require.NoError(t, err)

	info := app.Planner.Holiday("2026-06-10")
	require.NotNil(t, info)
	assert.True(t, info.IsHoliday)
	assert.Equal(t, "Şirket Günü", info.HolidayName)
	assert.InDelta(t, 1.1, info.TrafficMultiplier, 1e-9)

	weekend := app.Planner.Holiday("2026-06-13")
	require.NotNil(t, weekend)
	assert.InDelta(t, 1.2, weekend.TrafficMultiplier, 1e-9)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{
			name:   "missing gazetteer file",
			mutate: func(c *config.Config) { c.Parser.GazetteerFile = "/nonexistent/gazetteer.yaml" },
		},
		{
			name:   "missing holiday file",
			mutate: func(c *config.Config) { c.Holidays.File = "/nonexistent/holidays.yaml" },
		},
		{
			name:   "holidays from database without url",
			mutate: func(c *config.Config) { c.Holidays.FromDatabase = true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			_, err := Build(context.Background(), Options{Config: cfg, Logger: zerolog.Nop()})
			assert.Error(t, err)
		})
	}
}
