package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_a_quorum_unlock.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "scenario_a_quorum_unlock", s.Name)
	require.Len(t, s.Steps, 4)

	create := s.Steps[0]
	assert.Equal(t, OpCreate, create.Op)
	require.NotNil(t, create.Create)
	require.NotNil(t, create.Create.Lat)
	assert.Equal(t, 1.30, *create.Create.Lat)
	assert.Equal(t, 2, create.Create.Threshold)
	require.NotNil(t, create.Expect.ParticipantCount)
	assert.Equal(t, 1, *create.Expect.ParticipantCount)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: on_disk
description: "loaded from a temp dir"
start: 2026-06-01T08:00:00Z
steps:
  - op: sweep
`), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, 2026, s.Start.Year())
	assert.Equal(t, 8, s.Start.Hour())
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"missing name", "description: d\nsteps: [{op: sweep}]", "name is required"},
		{"missing description", "name: n\nsteps: [{op: sweep}]", "description is required"},
		{"no steps", "name: n\ndescription: d\nsteps: []", "steps list is required"},
		{"unknown field", "name: n\ndescription: d\nstep: []", "failed to parse YAML"},
		{"unknown op", "name: n\ndescription: d\nsteps: [{op: leave}]", `unknown op "leave"`},
		{"missing op", "name: n\ndescription: d\nsteps: [{as: bob}]", "op is required"},
		{"create without ref", "name: n\ndescription: d\nsteps: [{op: create, as: a, create: {activity: run}}]", "ref is required"},
		{"create without args", "name: n\ndescription: d\nsteps: [{op: create, as: a, ref: w}]", "create args are required"},
		{"duplicate ref", "name: n\ndescription: d\nsteps: [{op: create, as: a, ref: w, create: {activity: run}}, {op: create, as: a, ref: w, create: {activity: run}}]", "already bound"},
		{"join without wave", "name: n\ndescription: d\nsteps: [{op: join, as: bob}]", "as and wave are required"},
		{"bad advance", "name: n\ndescription: d\nsteps: [{op: advance, by: soon}]", "advance: by"},
		{"negative advance", "name: n\ndescription: d\nsteps: [{op: advance, by: -1h}]", "must not be negative"},
		{"nearby without args", "name: n\ndescription: d\nsteps: [{op: nearby}]", "nearby args are required"},
		{"check without wave", "name: n\ndescription: d\nsteps: [{op: check}]", "wave is required"},
		{"bad expected error", "name: n\ndescription: d\nsteps: [{op: sweep, expect: {error: boom}}]", `unknown expected error "boom"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
