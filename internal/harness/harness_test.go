package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_FailedExpectationsAreReported(t *testing.T) {
	s := mustParse(t, `
name: wrong_expectations
description: "expectations that do not hold"
steps:
  - op: create
    as: alice
    ref: w1
    create: { activity: walk, lat: 1.30, lng: 103.85 }
    expect: { participant_count: 2 }
  - op: join
    as: bob
    wave: w1
    expect: { error: not_found }
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "participant_count: expected 2, got 1")
	assert.Contains(t, result.Errors[1], "outcome: expected not_found, got ok")
}

func TestRun_UnexpectedErrorFailsStepWithoutExpect(t *testing.T) {
	s := mustParse(t, `
name: unexpected_error
description: "an unknown activity is a validation error"
steps:
  - op: create
    as: alice
    ref: w1
    create: { activity: chess }
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, OutcomeValidation, result.Trace[0].Outcome)
	assert.True(t, strings.HasPrefix(result.Errors[0], "step 1 (create): unexpected error"))
}

func TestRun_UnboundRefIsRawID(t *testing.T) {
	s := mustParse(t, `
name: raw_id
description: "joining an id that never existed"
steps:
  - op: join
    as: bob
    wave: wave-404
    expect: { error: not_found }
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "wave-404", result.Trace[0].Wave)
}

func TestRun_ValidationOutcome(t *testing.T) {
	s := mustParse(t, `
name: validation
description: "a location-bound activity without a location"
steps:
  - op: create
    as: alice
    ref: w1
    create: { activity: tennis }
    expect: { error: validation }
  - op: nearby
    as: bob
    nearby: { lat: 1.30, lng: 103.85, radius_km: 500 }
    expect: { error: validation }
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_IsolatedRuns(t *testing.T) {
	s := mustParse(t, `
name: isolated
description: "ids restart for every run"
steps:
  - op: create
    as: alice
    ref: w1
    create: { activity: walk }
`)
	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
	assert.Contains(t, first.Trace[0].Detail, "id=wave-1")
}

func TestMarshalTrace(t *testing.T) {
	result := NewResult()
	result.addTrace(TraceEvent{Step: 1, Op: OpChatDown, Outcome: OutcomeOK})

	data, err := MarshalTrace("tiny", result)
	require.NoError(t, err)
	assert.Equal(t, `{
  "scenario_name": "tiny",
  "trace": [
    {
      "step": 1,
      "op": "chat_down",
      "outcome": "ok"
    }
  ]
}
`, string(data))
}
