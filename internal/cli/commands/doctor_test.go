package commands

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitestutil "github.com/leapstack-labs/leapdwh/internal/cli/testutil"
	"github.com/leapstack-labs/leapdwh/internal/provision"
	"github.com/leapstack-labs/leapdwh/internal/testutil"
)

func runDoctorJSON(t *testing.T) (*DoctorOutput, error) {
	t.Helper()
	stdout, _, err := execute(t, NewDoctorCommand())
	var out DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)
	return &out, err
}

func checkStatuses(out *DoctorOutput) map[string]string {
	statuses := make(map[string]string, len(out.HealthChecks))
	for _, c := range out.HealthChecks {
		statuses[c.ID] = c.Status
	}
	return statuses
}

func TestDoctor_HealthyProject(t *testing.T) {
	project := clitestutil.SetupTestProject(t, testutil.Minimal())
	loadProject(t, project.ConfigPath, "json")
	_, _, err := execute(t, NewRunCommand())
	require.NoError(t, err)

	out, err := runDoctorJSON(t)
	require.NoError(t, err)

	ids := make([]string, len(out.HealthChecks))
	for i, c := range out.HealthChecks {
		ids[i] = c.ID
		assert.Equal(t, checkPass, c.Status, "%s: %v", c.ID, c.Details)
	}
	assert.Equal(t, []string{"CF01", "CF02", "SR01", "SR02", "WH01", "WH02", "WH03"}, ids)
	assert.Equal(t, "duckdb", out.Target)
	assert.Equal(t, 100, out.Score)
	assert.Zero(t, out.IssueCount)
	assert.Empty(t, out.Recommendations)
	assert.Contains(t, out.HealthChecks[6].Details, "songplays: 1 rows")
}

func TestDoctor_BeforeFirstRun(t *testing.T) {
	project := clitestutil.SetupTestProject(t, testutil.Minimal())
	loadProject(t, project.ConfigPath, "json")

	out, err := runDoctorJSON(t)
	require.NoError(t, err, "warnings do not fail the command")

	statuses := checkStatuses(out)
	assert.Equal(t, checkWarn, statuses["WH02"])
	assert.Equal(t, checkSkip, statuses["WH03"])
	assert.Equal(t, 90, out.Score)
	assert.Equal(t, []string{"Create the tables with 'leapdwh load'"}, out.Recommendations)
}

func TestDoctor_MissingSource(t *testing.T) {
	src := testutil.Minimal().Write(t)
	path := writeConfig(t, fmt.Sprintf(`target:
  type: duckdb
sources:
  log_data: %q
  log_jsonpath: %q
  song_data: %q
`, src.Root+"/nothing-here", src.LogJSONPath, src.SongData))
	loadProject(t, path, "json")

	out, err := runDoctorJSON(t)
	assert.EqualError(t, err, "doctor found 1 failing check(s)")

	statuses := checkStatuses(out)
	assert.Equal(t, checkError, statuses["SR01"])
	assert.Equal(t, checkPass, statuses["SR02"])
	assert.Contains(t, out.HealthChecks[2].Details[1], "no objects found")
}

func TestDoctor_InvalidSources(t *testing.T) {
	loadProject(t, writeConfig(t, "target:\n  type: duckdb\nsources:\n  song_data: \"\"\n"), "json")

	out, err := runDoctorJSON(t)
	require.Error(t, err)

	statuses := checkStatuses(out)
	assert.Equal(t, checkError, statuses["CF02"])
	assert.Equal(t, checkSkip, statuses["SR01"])
	assert.Equal(t, checkSkip, statuses["SR02"])
	assert.Equal(t, checkPass, statuses["WH01"], "in-memory duckdb still connects")
}

func TestDoctor_ClusterLookupFails(t *testing.T) {
	useFakeLookup(t, &fakeLookup{err: provision.ErrClusterNotFound})
	src := testutil.Minimal().Write(t)
	path := writeConfig(t, fmt.Sprintf(`target:
  type: redshift
sources:
  log_data: %q
  log_jsonpath: %q
  song_data: %q
`, src.LogData, src.LogJSONPath, src.SongData))
	loadProject(t, path, "json")

	out, err := runDoctorJSON(t)
	require.Error(t, err)

	statuses := checkStatuses(out)
	assert.Equal(t, checkPass, statuses["SR01"])
	assert.Equal(t, checkError, statuses["CL01"])
	assert.Equal(t, checkSkip, statuses["WH01"])
	assert.Equal(t, checkSkip, statuses["WH03"])
	assert.Contains(t, out.Recommendations, getRecommendation("CL01"))
}

func TestDoctor_TextOutput(t *testing.T) {
	project := clitestutil.SetupTestProject(t, testutil.Minimal())
	loadProject(t, project.ConfigPath, "text")

	stdout, _, err := execute(t, NewDoctorCommand())
	require.NoError(t, err)
	assert.Contains(t, stdout, "leapdwh Health Report")
	assert.Contains(t, stdout, "Config")
	assert.Contains(t, stdout, "Warehouse")
	assert.Contains(t, stdout, "CF01: Target configured")
	assert.Contains(t, stdout, "Health Score: 90/100")
	assert.Contains(t, stdout, "1. Create the tables")
}

func TestDoctor_MarkdownOutput(t *testing.T) {
	project := clitestutil.SetupTestProject(t, testutil.Minimal())
	loadProject(t, project.ConfigPath, "markdown")

	stdout, _, err := execute(t, NewDoctorCommand())
	require.NoError(t, err)
	clitestutil.AssertValidMarkdown(t, stdout)
	assert.Contains(t, stdout, "## Sources")
	assert.Contains(t, stdout, "- **[WARN]** WH02: Tables created")
	assert.Contains(t, stdout, "- **[SKIP]** WH03: Tables populated")
}

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     int
	}{
		{"no checks", nil, 100},
		{"all pass", []string{checkPass, checkPass}, 100},
		{"skips are free", []string{checkPass, checkSkip}, 100},
		{"one warning", []string{checkWarn}, 90},
		{"one error", []string{checkError, checkPass}, 80},
		{"floor at zero", []string{checkError, checkError, checkError, checkError, checkError, checkError}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := make([]HealthCheck, len(tt.statuses))
			for i, s := range tt.statuses {
				checks[i] = HealthCheck{Status: s}
			}
			assert.Equal(t, tt.want, calculateHealthScore(checks))
		})
	}
}

func TestGetRecommendation(t *testing.T) {
	for _, id := range []string{"CF01", "CF02", "SR01", "SR02", "CL01", "WH01", "WH02", "WH03"} {
		assert.NotEmpty(t, getRecommendation(id), id)
	}
	assert.Empty(t, getRecommendation("UNKNOWN"))
}
