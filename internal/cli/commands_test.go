package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/config"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/engine"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/store"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// execute runs wavectl against a sqlite database and decodes the JSON
// response.
func execute(t *testing.T, db string, args ...string) (rawResponse, error) {
	t.Helper()

	cmd := newRootCommand(config.Env{DB: db, DBDriver: "sqlite"})
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--format", "json"}, args...))

	err := cmd.Execute()

	var resp rawResponse
	if stdout.Len() > 0 {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp), stdout.String())
	}
	return resp, err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "waves.db")
}

func createWave(t *testing.T, db string, args ...string) wave.Wave {
	t.Helper()

	resp, err := execute(t, db, append([]string{"create"}, args...)...)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Status)

	var w wave.Wave
	require.NoError(t, json.Unmarshal(resp.Data, &w))
	return w
}

func TestCreateJoinUnlock(t *testing.T) {
	db := tempDB(t)

	w := createWave(t, db, "--as", "u1", "--activity", "run", "--threshold", "2",
		"--lat", "1.3521", "--lng", "103.8198", "--thought", "easy 5k")
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, wave.ActivityType("run"), w.Activity)
	assert.Equal(t, 1, w.ParticipantCount)
	assert.False(t, w.IsUnlocked)
	assert.Equal(t, "easy 5k", w.Thought)

	resp, err := execute(t, db, "join", w.ID, "--as", "u2")
	require.NoError(t, err)
	var joined joinView
	require.NoError(t, json.Unmarshal(resp.Data, &joined))
	assert.True(t, joined.IsUnlocked)
	assert.NotEmpty(t, joined.ChatRoomID)
	assert.False(t, joined.AlreadyMember)
	assert.Equal(t, 2, joined.Wave.ParticipantCount)

	resp, err = execute(t, db, "join", w.ID, "--as", "u2")
	require.NoError(t, err)
	var again joinView
	require.NoError(t, json.Unmarshal(resp.Data, &again))
	assert.True(t, again.AlreadyMember)
	assert.True(t, again.IsUnlocked)
	assert.Equal(t, joined.ChatRoomID, again.ChatRoomID)
	assert.Equal(t, 2, again.Wave.ParticipantCount)
}

func TestCreate_Validation(t *testing.T) {
	db := tempDB(t)

	resp, err := execute(t, db, "create", "--as", "u1", "--activity", "curling")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidation, resp.Error.Code)
	assert.Equal(t, "activity", resp.Error.Field)

	resp, err = execute(t, db, "create", "--as", "u1", "--activity", "football")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "location", resp.Error.Field)
}

func TestCreate_RequiresUser(t *testing.T) {
	_, err := execute(t, tempDB(t), "create", "--activity", "run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCreate_LatWithoutLng(t *testing.T) {
	_, err := execute(t, tempDB(t), "create", "--as", "u1", "--activity", "run", "--lat", "1.3")
	require.Error(t, err)
}

func TestNearby(t *testing.T) {
	db := tempDB(t)

	near := createWave(t, db, "--as", "u1", "--activity", "run", "--lat", "1.3000", "--lng", "103.8000")
	far := createWave(t, db, "--as", "u2", "--activity", "run", "--lat", "1.4500", "--lng", "103.8000")
	createWave(t, db, "--as", "u3", "--activity", "yoga")

	resp, err := execute(t, db, "nearby", "--lat", "1.3010", "--lng", "103.8000", "--radius", "5")
	require.NoError(t, err)

	var page engine.NearbyPage
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	require.Len(t, page.Waves, 1)
	assert.Equal(t, near.ID, page.Waves[0].ID)
	assert.InDelta(t, 0.11, page.Waves[0].DistanceKm, 0.01)

	resp, err = execute(t, db, "nearby", "--lat", "1.3010", "--lng", "103.8000", "--radius", "50", "--limit", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	require.Len(t, page.Waves, 1)
	assert.Equal(t, near.ID, page.Waves[0].ID)
	require.NotEmpty(t, page.NextCursor)

	resp, err = execute(t, db, "nearby", "--lat", "1.3010", "--lng", "103.8000", "--radius", "50", "--limit", "1", "--cursor", page.NextCursor)
	require.NoError(t, err)
	var next engine.NearbyPage
	require.NoError(t, json.Unmarshal(resp.Data, &next))
	require.Len(t, next.Waves, 1)
	assert.Equal(t, far.ID, next.Waves[0].ID)
}

func TestNearby_InvalidWindow(t *testing.T) {
	resp, err := execute(t, tempDB(t), "nearby", "--lat", "1.3", "--lng", "103.8", "--window", "fortnight")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "window", resp.Error.Field)
}

func TestGet(t *testing.T) {
	db := tempDB(t)
	w := createWave(t, db, "--as", "u1", "--activity", "run")

	resp, err := execute(t, db, "get", w.ID)
	require.NoError(t, err)
	var got wave.Wave
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, w.ID, got.ID)

	resp, err = execute(t, db, "get", w.ID, "--participants")
	require.NoError(t, err)
	var ps participantsView
	require.NoError(t, json.Unmarshal(resp.Data, &ps))
	require.Len(t, ps.Participants, 1)
	assert.Equal(t, "u1", ps.Participants[0].UserID)

	resp, err = execute(t, db, "get", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
}

func TestDelete(t *testing.T) {
	db := tempDB(t)
	w := createWave(t, db, "--as", "u1", "--activity", "run")

	resp, err := execute(t, db, "delete", w.ID, "--as", "u2")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeForbidden, resp.Error.Code)

	resp, err = execute(t, db, "delete", w.ID, "--as", "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"deleted":"`+w.ID+`"}`, string(resp.Data))

	resp, err = execute(t, db, "join", w.ID, "--as", "u3")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
}

func TestStatsAndSweep(t *testing.T) {
	db := tempDB(t)
	w := createWave(t, db, "--as", "u1", "--activity", "run", "--threshold", "2")
	createWave(t, db, "--as", "u2", "--activity", "yoga")
	_, err := execute(t, db, "join", w.ID, "--as", "u3")
	require.NoError(t, err)

	resp, err := execute(t, db, "stats")
	require.NoError(t, err)
	var st store.Stats
	require.NoError(t, json.Unmarshal(resp.Data, &st))
	assert.Equal(t, store.Stats{Waves: 2, Active: 2, Unlocked: 1, Participants: 3}, st)

	resp, err = execute(t, db, "sweep")
	require.NoError(t, err)
	var report engine.SweepReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, engine.SweepReport{}, report)
}

func TestConfigValidate(t *testing.T) {
	resp, err := execute(t, "", "config", "validate")
	require.NoError(t, err)
	var summary configSummary
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, 16, summary.Activities)
	assert.Equal(t, "UTC", summary.TimeZone)

	bad := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(bad, []byte(`wave: max_threshold: 1`), 0o644))

	resp, err = execute(t, "", "config", "validate", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidation, resp.Error.Code)
	assert.Equal(t, bad, resp.Error.Field)
}

func TestConfigActivities(t *testing.T) {
	resp, err := execute(t, "", "config", "activities")
	require.NoError(t, err)
	var view activitiesView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	require.Len(t, view.Activities, 16)
	assert.Equal(t, wave.ActivityType("run"), view.Activities[0].Type)
}

func TestServe_RequiresSecret(t *testing.T) {
	cmd := newRootCommand(config.Env{DB: tempDB(t), DBDriver: "sqlite", Addr: "127.0.0.1:0"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "JWT secret")
}

func TestOpenRuntime_NoDatabase(t *testing.T) {
	_, err := execute(t, "", "stats")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenario_Golden(t *testing.T) {
	resp, err := execute(t, "", "scenario", "../harness/testdata/scenarios", "--golden", "../harness/testdata/golden")
	require.NoError(t, err)

	var report ScenarioReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 5, report.Passed)
	assert.Zero(t, report.Failed)
}

func TestScenario_UpdateAndMismatch(t *testing.T) {
	golden := t.TempDir()
	scenarioFile := "../harness/testdata/scenarios/scenario_a_quorum_unlock.yaml"

	_, err := execute(t, "", "scenario", scenarioFile, "--golden", golden, "--update")
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(golden, "*.golden"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	require.NoError(t, os.WriteFile(files[0], []byte(`{"scenario_name":"other","trace":[]}`), 0o644))

	resp, err := execute(t, "", "scenario", scenarioFile, "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var report ScenarioReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	require.Len(t, report.Scenarios, 1)
	assert.False(t, report.Scenarios[0].Pass)
	assert.Contains(t, report.Scenarios[0].Errors[0], "golden")
}

func TestScenario_Filter(t *testing.T) {
	resp, err := execute(t, "", "scenario", "../harness/testdata/scenarios", "--filter", "scenario_*")
	require.NoError(t, err)

	var report ScenarioReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, 3, report.Total)
}

func TestScenario_UpdateRequiresGolden(t *testing.T) {
	_, err := execute(t, "", "scenario", "../harness/testdata/scenarios", "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
