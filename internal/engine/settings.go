package engine

import (
	"fmt"
	"time"
)

// Settings are the tunables shared by the engine components.
type Settings struct {
	// TTL is how long an unscheduled wave stays active.
	TTL time.Duration
	// ScheduledGrace keeps a scheduled wave active past its start time.
	ScheduledGrace time.Duration
	// MaxScheduleAhead bounds how far in the future a wave may be scheduled.
	MaxScheduleAhead time.Duration
	// MaxThreshold caps per-wave threshold overrides.
	MaxThreshold int

	// UnlockLease is how long a caller owns an unlock attempt.
	UnlockLease time.Duration
	// ProvisionTimeout bounds the whole unlock protocol, retries included.
	ProvisionTimeout time.Duration

	DefaultRadiusKm float64
	MaxRadiusKm     float64
	DefaultLimit    int
	MaxLimit        int
	// Location decides where the "today" window ends.
	Location *time.Location

	// Retention is how long expired waves are kept before the sweeper purges
	// them. Zero disables purging.
	Retention     time.Duration
	SweepInterval time.Duration
	SweepBatch    int
}

// DefaultSettings returns the settings used when no configuration is given.
func DefaultSettings() Settings {
	return Settings{
		TTL:              3 * time.Hour,
		ScheduledGrace:   2 * time.Hour,
		MaxScheduleAhead: 14 * 24 * time.Hour,
		MaxThreshold:     50,
		UnlockLease:      30 * time.Second,
		ProvisionTimeout: 20 * time.Second,
		DefaultRadiusKm:  5,
		MaxRadiusKm:      50,
		DefaultLimit:     20,
		MaxLimit:         100,
		Location:         time.UTC,
		Retention:        24 * time.Hour,
		SweepInterval:    time.Minute,
		SweepBatch:       100,
	}
}

// Validate reports the first inconsistent setting.
func (s Settings) Validate() error {
	switch {
	case s.TTL <= 0:
		return fmt.Errorf("ttl must be positive")
	case s.ScheduledGrace < 0:
		return fmt.Errorf("scheduled grace must not be negative")
	case s.MaxScheduleAhead <= 0:
		return fmt.Errorf("max schedule ahead must be positive")
	case s.MaxThreshold < 2:
		return fmt.Errorf("max threshold must be at least 2")
	case s.UnlockLease <= 0:
		return fmt.Errorf("unlock lease must be positive")
	case s.ProvisionTimeout <= 0:
		return fmt.Errorf("provision timeout must be positive")
	case s.UnlockLease <= s.ProvisionTimeout:
		return fmt.Errorf("unlock lease %s must outlast provision timeout %s", s.UnlockLease, s.ProvisionTimeout)
	case s.DefaultRadiusKm <= 0 || s.MaxRadiusKm < s.DefaultRadiusKm:
		return fmt.Errorf("radius defaults must satisfy 0 < default <= max")
	case s.DefaultLimit <= 0 || s.MaxLimit < s.DefaultLimit:
		return fmt.Errorf("limit defaults must satisfy 0 < default <= max")
	case s.Retention < 0:
		return fmt.Errorf("retention must not be negative")
	case s.SweepInterval <= 0:
		return fmt.Errorf("sweep interval must be positive")
	case s.SweepBatch <= 0:
		return fmt.Errorf("sweep batch must be positive")
	}
	return nil
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
