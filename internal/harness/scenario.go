package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of engine operations.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Start is the initial clock time. Zero means DefaultStart.
	Start time.Time `yaml:"start,omitempty"`

	Steps []Step `yaml:"steps"`
}

// DefaultStart is the clock time scenarios begin at unless they set start.
var DefaultStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Step is one operation.
type Step struct {
	Op string `yaml:"op"`
	// As is the acting user.
	As string `yaml:"as,omitempty"`
	// Wave names the target wave by ref.
	Wave string `yaml:"wave,omitempty"`
	// Ref binds the id of a created wave.
	Ref string `yaml:"ref,omitempty"`
	// By is the duration of an advance step.
	By string `yaml:"by,omitempty"`

	Create *CreateArgs `yaml:"create,omitempty"`
	Nearby *NearbyArgs `yaml:"nearby,omitempty"`
	Expect *Expect     `yaml:"expect,omitempty"`
}

// CreateArgs are the fields of a create step.
type CreateArgs struct {
	Activity  string   `yaml:"activity"`
	Area      string   `yaml:"area,omitempty"`
	Lat       *float64 `yaml:"lat,omitempty"`
	Lng       *float64 `yaml:"lng,omitempty"`
	Threshold int      `yaml:"threshold,omitempty"`
	// ScheduledIn schedules the wave this far after the current clock.
	ScheduledIn string `yaml:"scheduled_in,omitempty"`
	Thought     string `yaml:"thought,omitempty"`
}

// NearbyArgs are the fields of a nearby step.
type NearbyArgs struct {
	Lat      float64 `yaml:"lat"`
	Lng      float64 `yaml:"lng"`
	RadiusKm float64 `yaml:"radius_km,omitempty"`
	Window   string  `yaml:"window,omitempty"`
	Limit    int     `yaml:"limit,omitempty"`
}

// Expect lists what a step must observe. Unset fields are not checked.
type Expect struct {
	// Error is the expected error outcome: not_found, forbidden or
	// validation. Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	ParticipantCount *int  `yaml:"participant_count,omitempty"`
	Unlocked         *bool `yaml:"unlocked,omitempty"`
	AlreadyMember    *bool `yaml:"already_member,omitempty"`
	PendingUnlock    *bool `yaml:"pending_unlock,omitempty"`
	// ChatRoom reports whether a chat room id is recorded.
	ChatRoom *bool `yaml:"chat_room,omitempty"`
	// RoomsCreated is the number of distinct rooms the provisioner holds.
	RoomsCreated *int `yaml:"rooms_created,omitempty"`

	// Waves is the exact ordered nearby result, by ref.
	Waves    []string `yaml:"waves,omitempty"`
	Excludes []string `yaml:"excludes,omitempty"`
	Count    *int     `yaml:"count,omitempty"`

	// Exists and Rows apply to check steps.
	Exists *bool `yaml:"exists,omitempty"`
	Rows   *int  `yaml:"rows,omitempty"`

	// SweptUnlocks and Purged apply to sweep steps.
	SweptUnlocks *int `yaml:"swept_unlocks,omitempty"`
	Purged       *int `yaml:"purged,omitempty"`
}

// Operation names.
const (
	OpCreate   = "create"
	OpJoin     = "join"
	OpDelete   = "delete"
	OpNearby   = "nearby"
	OpAdvance  = "advance"
	OpSweep    = "sweep"
	OpChatDown = "chat_down"
	OpChatUp   = "chat_up"
	OpCheck    = "check"
)

// Error outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeForbidden  = "forbidden"
	OutcomeValidation = "validation"
	OutcomeError      = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	refs := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(step, refs); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step, refs map[string]bool) error {
	switch step.Op {
	case OpCreate:
		if step.As == "" {
			return fmt.Errorf("create: as is required")
		}
		if step.Ref == "" {
			return fmt.Errorf("create: ref is required")
		}
		if refs[step.Ref] {
			return fmt.Errorf("create: ref %q already bound", step.Ref)
		}
		if step.Create == nil {
			return fmt.Errorf("create: create args are required")
		}
		if step.Create.ScheduledIn != "" {
			if _, err := time.ParseDuration(step.Create.ScheduledIn); err != nil {
				return fmt.Errorf("create: scheduled_in: %w", err)
			}
		}
		refs[step.Ref] = true
	case OpJoin, OpDelete:
		if step.As == "" || step.Wave == "" {
			return fmt.Errorf("%s: as and wave are required", step.Op)
		}
	case OpCheck:
		if step.Wave == "" {
			return fmt.Errorf("check: wave is required")
		}
	case OpNearby:
		if step.Nearby == nil {
			return fmt.Errorf("nearby: nearby args are required")
		}
	case OpAdvance:
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return fmt.Errorf("advance: by: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("advance: by must not be negative")
		}
	case OpSweep, OpChatDown, OpChatUp:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if step.Expect != nil {
		switch step.Expect.Error {
		case "", OutcomeNotFound, OutcomeForbidden, OutcomeValidation:
		default:
			return fmt.Errorf("unknown expected error %q", step.Expect.Error)
		}
	}
	return nil
}
