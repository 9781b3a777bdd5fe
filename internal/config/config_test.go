package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/engine"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

func TestDefaultMatchesEngineDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, engine.DefaultSettings(), cfg.Settings())
	require.NoError(t, cfg.Settings().Validate())

	assert.Equal(t, 6, cfg.Geo.Precision)
	assert.Equal(t, 64, cfg.Geo.MaxCells)
	assert.Equal(t, 3, cfg.Chat.Attempts)
	assert.Equal(t, 5*time.Second, cfg.Chat.AttemptTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Chat.Backoff)
	assert.Len(t, cfg.RetryOptions(), 3)
}

func TestDefaultCatalog(t *testing.T) {
	catalog, err := Default().Catalog()
	require.NoError(t, err)
	assert.Equal(t, 16, catalog.Len())

	run, ok := catalog.Lookup("run")
	require.True(t, ok)
	assert.Equal(t, 3, run.DefaultThreshold)
	assert.False(t, run.RequiresLocation)

	football, ok := catalog.Lookup("football")
	require.True(t, ok)
	assert.Equal(t, 8, football.DefaultThreshold)
	assert.True(t, football.RequiresLocation)
}

func TestParseOverridesDefaults(t *testing.T) {
	src := `
wave: ttl: "90m"
query: {
	default_radius_km: 3
	time_zone:         "Asia/Singapore"
}
activities: [
	{type: "run", default_threshold: 4},
	{type: "padel", label: "Padel", default_threshold: 4, requires_location: true},
]
`
	cfg, err := Parse([]byte(src), "waves.cue")
	require.NoError(t, err)

	settings := cfg.Settings()
	assert.Equal(t, 90*time.Minute, settings.TTL)
	assert.Equal(t, 2*time.Hour, settings.ScheduledGrace)
	assert.Equal(t, 3.0, settings.DefaultRadiusKm)
	assert.Equal(t, "Asia/Singapore", settings.Location.String())

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())
	run, _ := catalog.Lookup("run")
	assert.Equal(t, "run", run.Label)
	padel, ok := catalog.Lookup(wave.ActivityType("padel"))
	require.True(t, ok)
	assert.True(t, padel.RequiresLocation)
}

func TestParseAcceptsJSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"sweep": {"interval": "30s", "batch": 10}}`), "waves.json")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Interval)
	assert.Equal(t, 10, cfg.Sweep.Batch)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `wave: colour: "blue"`},
		{"threshold below two", `wave: max_threshold: 1`},
		{"bad duration", `wave: ttl: "three hours"`},
		{"lease shorter than provisioning", `wave: {unlock_lease: "10s", provision_timeout: "20s"}`},
		{"negative radius", `query: default_radius_km: -1`},
		{"default radius above max", `query: {default_radius_km: 80, max_radius_km: 50}`},
		{"default limit above max", `query: {default_limit: 200}`},
		{"unknown time zone", `query: time_zone: "Mars/Olympus"`},
		{"geohash too fine", `geo: precision: 13`},
		{"activity threshold", `activities: [{type: "run", default_threshold: 1}]`},
		{"duplicate activity", `activities: [{type: "run", default_threshold: 3}, {type: "run", default_threshold: 4}]`},
		{"empty catalog", `activities: []`},
		{"syntax error", `wave: {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "bad.cue", cfgErr.File)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Settings(), cfg.Settings())
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "waves.cue")
		require.NoError(t, os.WriteFile(path, []byte(`sweep: retention: "0s"`), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Zero(t, cfg.Settings().Retention)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope.cue")
	})
}

func TestFromEnv(t *testing.T) {
	vars := map[string]string{
		EnvDB:        "postgres://localhost/waves",
		EnvDBDriver:  "postgres",
		EnvJWTSecret: "s3cret",
		EnvAddr:      "",
	}
	env := FromEnv(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
	assert.Equal(t, "postgres://localhost/waves", env.DB)
	assert.Equal(t, "postgres", env.DBDriver)
	assert.Equal(t, "s3cret", env.JWTSecret)
	assert.Equal(t, ":8080", env.Addr)
	assert.Empty(t, env.RedisAddr)
}

func TestDotEnvLookup(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, ".env")
	second := filepath.Join(dir, ".env.local")
	require.NoError(t, os.WriteFile(first, []byte("WAVE_DB=from-file.db\nWAVE_ADDR=:9000\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("WAVE_DB=ignored.db\nWAVE_REDIS_ADDR=redis:6379\n"), 0o644))

	process := map[string]string{EnvAddr: ":7000"}
	lookup, err := DotEnvLookup(func(k string) (string, bool) {
		v, ok := process[k]
		return v, ok
	}, first, filepath.Join(dir, "missing.env"), second)
	require.NoError(t, err)

	env := FromEnv(lookup)
	assert.Equal(t, "from-file.db", env.DB)
	assert.Equal(t, ":7000", env.Addr)
	assert.Equal(t, "redis:6379", env.RedisAddr)
	assert.Equal(t, "sqlite", env.DBDriver)
}

func TestDotEnvLookup_Malformed(t *testing.T) {
	// A directory cannot be parsed as a .env file.
	path := t.TempDir()

	_, err := DotEnvLookup(func(string) (string, bool) { return "", false }, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
