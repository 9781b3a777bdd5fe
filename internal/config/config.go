// Package config loads engine configuration from CUE.
//
// The embedded schema.cue declares every field with its constraints and
// default. A user file is unified with it, so the user only writes what
// differs. Process settings (database, Redis, secrets) come from flags and
// the environment instead; see Env.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/chat"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/engine"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded, validated engine configuration.
type Config struct {
	Wave       WaveConfig
	Query      QueryConfig
	Geo        GeoConfig
	Sweep      SweepConfig
	Chat       ChatConfig
	Activities []ActivityConfig `validate:"min=1,dive"`
}

type WaveConfig struct {
	TTL              time.Duration `validate:"gt=0"`
	ScheduledGrace   time.Duration `validate:"gte=0"`
	MaxScheduleAhead time.Duration `validate:"gt=0"`
	MaxThreshold     int           `validate:"gte=2"`
	UnlockLease      time.Duration `validate:"gt=0,gtfield=ProvisionTimeout"`
	ProvisionTimeout time.Duration `validate:"gt=0"`
}

type QueryConfig struct {
	DefaultRadiusKm float64        `validate:"gt=0,ltefield=MaxRadiusKm"`
	MaxRadiusKm     float64        `validate:"gt=0"`
	DefaultLimit    int            `validate:"gt=0,ltefield=MaxLimit"`
	MaxLimit        int            `validate:"gt=0"`
	TimeZone        string         `validate:"required"`
	Location        *time.Location `validate:"-"`
}

type GeoConfig struct {
	Precision int `validate:"min=1,max=12"`
	MaxCells  int `validate:"min=1"`
}

type SweepConfig struct {
	Interval  time.Duration `validate:"gt=0"`
	Retention time.Duration `validate:"gte=0"`
	Batch     int           `validate:"gt=0"`
}

type ChatConfig struct {
	Attempts       int           `validate:"min=1"`
	AttemptTimeout time.Duration `validate:"gt=0"`
	Backoff        time.Duration `validate:"gte=0"`
}

type ActivityConfig struct {
	Type             string `json:"type" validate:"required"`
	Label            string `json:"label"`
	Emoji            string `json:"emoji"`
	DefaultThreshold int    `json:"default_threshold" validate:"gte=2"`
	RequiresLocation bool   `json:"requires_location"`
}

// document mirrors schema.cue for decoding.
type document struct {
	Wave struct {
		TTL              string `json:"ttl"`
		ScheduledGrace   string `json:"scheduled_grace"`
		MaxScheduleAhead string `json:"max_schedule_ahead"`
		MaxThreshold     int    `json:"max_threshold"`
		UnlockLease      string `json:"unlock_lease"`
		ProvisionTimeout string `json:"provision_timeout"`
	} `json:"wave"`
	Query struct {
		DefaultRadiusKm float64 `json:"default_radius_km"`
		MaxRadiusKm     float64 `json:"max_radius_km"`
		DefaultLimit    int     `json:"default_limit"`
		MaxLimit        int     `json:"max_limit"`
		TimeZone        string  `json:"time_zone"`
	} `json:"query"`
	Geo struct {
		Precision int `json:"precision"`
		MaxCells  int `json:"max_cells"`
	} `json:"geo"`
	Sweep struct {
		Interval  string `json:"interval"`
		Retention string `json:"retention"`
		Batch     int    `json:"batch"`
	} `json:"sweep"`
	Chat struct {
		Attempts       int    `json:"attempts"`
		AttemptTimeout string `json:"attempt_timeout"`
		Backoff        string `json:"backoff"`
	} `json:"chat"`
	Activities []ActivityConfig `json:"activities"`
}

// Error reports an invalid configuration document.
type Error struct {
	File    string
	Message string
}

func (e *Error) Error() string {
	if e.File == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config %s: %s", e.File, e.Message)
}

// Load reads the CUE file at path and unifies it with the schema. An empty
// path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Parse(nil, "")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &Error{File: path, Message: err.Error()}
	}
	return Parse(data, path)
}

// Default returns the configuration with every default applied.
func Default() Config {
	cfg, err := Parse(nil, "")
	if err != nil {
		panic(fmt.Sprintf("embedded config schema: %v", err))
	}
	return cfg
}

// Parse unifies a CUE (or JSON) document with the schema.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, &Error{File: "schema.cue", Message: cueerrors.Details(err, nil)}
	}
	value := schema.LookupPath(cue.ParsePath("#Config"))

	if len(data) > 0 {
		name := filename
		if name == "" {
			name = "config.cue"
		}
		user := ctx.CompileBytes(data, cue.Filename(name))
		if err := user.Err(); err != nil {
			return Config{}, &Error{File: filename, Message: cueerrors.Details(err, nil)}
		}
		value = value.Unify(user)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Config{}, &Error{File: filename, Message: cueerrors.Details(err, nil)}
	}

	var doc document
	if err := value.Decode(&doc); err != nil {
		return Config{}, &Error{File: filename, Message: cueerrors.Details(err, nil)}
	}

	cfg, err := doc.build()
	if err != nil {
		return Config{}, &Error{File: filename, Message: err.Error()}
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, &Error{File: filename, Message: err.Error()}
	}
	if err := cfg.Settings().Validate(); err != nil {
		return Config{}, &Error{File: filename, Message: err.Error()}
	}
	if _, err := cfg.Catalog(); err != nil {
		return Config{}, &Error{File: filename, Message: err.Error()}
	}
	return cfg, nil
}

var validate = validator.New()

func (d document) build() (Config, error) {
	var cfg Config
	var err error
	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"wave.ttl", d.Wave.TTL, &cfg.Wave.TTL},
		{"wave.scheduled_grace", d.Wave.ScheduledGrace, &cfg.Wave.ScheduledGrace},
		{"wave.max_schedule_ahead", d.Wave.MaxScheduleAhead, &cfg.Wave.MaxScheduleAhead},
		{"wave.unlock_lease", d.Wave.UnlockLease, &cfg.Wave.UnlockLease},
		{"wave.provision_timeout", d.Wave.ProvisionTimeout, &cfg.Wave.ProvisionTimeout},
		{"sweep.interval", d.Sweep.Interval, &cfg.Sweep.Interval},
		{"sweep.retention", d.Sweep.Retention, &cfg.Sweep.Retention},
		{"chat.attempt_timeout", d.Chat.AttemptTimeout, &cfg.Chat.AttemptTimeout},
		{"chat.backoff", d.Chat.Backoff, &cfg.Chat.Backoff},
	}
	for _, dur := range durations {
		if *dur.dst, err = time.ParseDuration(dur.raw); err != nil {
			return Config{}, fmt.Errorf("%s: %w", dur.field, err)
		}
	}

	cfg.Wave.MaxThreshold = d.Wave.MaxThreshold
	cfg.Query = QueryConfig{
		DefaultRadiusKm: d.Query.DefaultRadiusKm,
		MaxRadiusKm:     d.Query.MaxRadiusKm,
		DefaultLimit:    d.Query.DefaultLimit,
		MaxLimit:        d.Query.MaxLimit,
		TimeZone:        d.Query.TimeZone,
	}
	if cfg.Query.Location, err = time.LoadLocation(d.Query.TimeZone); err != nil {
		return Config{}, fmt.Errorf("query.time_zone: %w", err)
	}
	cfg.Geo = GeoConfig{Precision: d.Geo.Precision, MaxCells: d.Geo.MaxCells}
	cfg.Sweep.Batch = d.Sweep.Batch
	cfg.Chat.Attempts = d.Chat.Attempts
	cfg.Activities = d.Activities
	return cfg, nil
}

// Settings converts the configuration for the engine.
func (c Config) Settings() engine.Settings {
	return engine.Settings{
		TTL:              c.Wave.TTL,
		ScheduledGrace:   c.Wave.ScheduledGrace,
		MaxScheduleAhead: c.Wave.MaxScheduleAhead,
		MaxThreshold:     c.Wave.MaxThreshold,
		UnlockLease:      c.Wave.UnlockLease,
		ProvisionTimeout: c.Wave.ProvisionTimeout,
		DefaultRadiusKm:  c.Query.DefaultRadiusKm,
		MaxRadiusKm:      c.Query.MaxRadiusKm,
		DefaultLimit:     c.Query.DefaultLimit,
		MaxLimit:         c.Query.MaxLimit,
		Location:         c.Query.Location,
		Retention:        c.Sweep.Retention,
		SweepInterval:    c.Sweep.Interval,
		SweepBatch:       c.Sweep.Batch,
	}
}

// Catalog builds the activity catalog.
func (c Config) Catalog() (*wave.Catalog, error) {
	activities := make([]wave.Activity, len(c.Activities))
	for i, a := range c.Activities {
		activities[i] = wave.Activity{
			Type:             wave.ActivityType(a.Type),
			Label:            a.Label,
			Emoji:            a.Emoji,
			DefaultThreshold: a.DefaultThreshold,
			RequiresLocation: a.RequiresLocation,
		}
	}
	return wave.NewCatalog(activities)
}

// GeoOptions returns the geohash bucketing options.
func (c Config) GeoOptions() geo.Options {
	return geo.Options{Precision: c.Geo.Precision, MaxCells: c.Geo.MaxCells}
}

// RetryOptions returns the chat retry policy.
func (c Config) RetryOptions() []chat.RetryOption {
	return []chat.RetryOption{
		chat.WithAttempts(c.Chat.Attempts),
		chat.WithAttemptTimeout(c.Chat.AttemptTimeout),
		chat.WithBackoff(c.Chat.Backoff),
	}
}
