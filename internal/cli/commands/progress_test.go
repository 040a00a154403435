package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitestutil "github.com/leapstack-labs/leapdwh/internal/cli/testutil"
	"github.com/leapstack-labs/leapdwh/internal/pipeline"
	"github.com/leapstack-labs/leapdwh/pkg/core"
)

var copyEvents = core.Statement{
	Stage: core.StageLoad,
	Kind:  core.StatementCopy,
	Name:  "copy staging_events",
	Table: "staging_events",
}

func TestRunEvent(t *testing.T) {
	t.Run("statement complete", func(t *testing.T) {
		ev := runEvent(pipeline.Event{
			Kind:      pipeline.EventStatementComplete,
			RunID:     "run-1",
			Mode:      pipeline.ModeLoad,
			State:     pipeline.StateReset,
			Seq:       15,
			Total:     16,
			Statement: copyEvents,
			Status:    core.StatementSuccess,
			Rows:      8056,
			Duration:  1500 * time.Millisecond,
		})
		assert.Equal(t, "statement_complete", ev.Event)
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, "load", ev.Mode)
		assert.Equal(t, 15, ev.Seq)
		assert.Equal(t, 16, ev.Total)
		assert.Equal(t, "load", ev.Stage)
		assert.Equal(t, "copy staging_events", ev.Statement)
		assert.Equal(t, "staging_events", ev.Table)
		assert.Equal(t, "success", ev.Status)
		assert.Equal(t, int64(8056), ev.Rows)
		assert.Equal(t, int64(1500), ev.DurationMS)
		assert.Empty(t, ev.Error)
		_, err := time.Parse(time.RFC3339, ev.Timestamp)
		assert.NoError(t, err)
	})

	t.Run("run complete", func(t *testing.T) {
		ev := runEvent(pipeline.Event{
			Kind:     pipeline.EventRunComplete,
			Mode:     pipeline.ModeFull,
			Duration: 2 * time.Second,
			Counts:   []pipeline.TableCount{{Table: "songplays", Rows: 333}, {Table: "users", Rows: 104}},
		})
		assert.Equal(t, "completed", ev.Status)
		assert.Equal(t, map[string]int64{"songplays": 333, "users": 104}, ev.Counts)
		assert.Equal(t, int64(2000), ev.DurationMS)
	})

	t.Run("run failed", func(t *testing.T) {
		ev := runEvent(pipeline.Event{
			Kind: pipeline.EventRunComplete,
			Mode: pipeline.ModeFull,
			Err:  errors.New("copy failed"),
		})
		assert.Equal(t, "failed", ev.Status)
		assert.Equal(t, "copy failed", ev.Error)
		assert.Nil(t, ev.Counts)
	})
}

func TestProgressObserver_JSONSkipsStateChanges(t *testing.T) {
	tr := clitestutil.NewTestRendererJSON()
	observe := progressObserver(tr.Renderer)

	observe(pipeline.Event{Kind: pipeline.EventRunStart, RunID: "r", Mode: pipeline.ModeLoad})
	observe(pipeline.Event{Kind: pipeline.EventStateChange, RunID: "r", State: pipeline.StateReset})
	observe(pipeline.Event{Kind: pipeline.EventRunComplete, RunID: "r", Mode: pipeline.ModeLoad})

	events := decodeEvents(t, tr.Output())
	require.Len(t, events, 2)
	assert.Equal(t, "run_start", events[0].Event)
	assert.Equal(t, "run_complete", events[1].Event)
}

func TestProgressObserver_Text(t *testing.T) {
	tr := clitestutil.NewTestRendererText()
	observe := progressObserver(tr.Renderer)

	observe(pipeline.Event{Kind: pipeline.EventRunStart, Mode: pipeline.ModeLoad})
	observe(pipeline.Event{
		Kind: pipeline.EventStatementComplete, Seq: 1, Total: 2,
		Statement: copyEvents, Status: core.StatementSuccess, Rows: 10, Duration: time.Millisecond,
	})
	observe(pipeline.Event{
		Kind: pipeline.EventStatementComplete, Seq: 2, Total: 2,
		Statement: core.Statement{Name: "copy staging_songs"}, Status: core.StatementFailed, Err: errors.New("access denied"),
	})
	observe(pipeline.Event{Kind: pipeline.EventRunComplete, Mode: pipeline.ModeLoad, Err: errors.New("access denied")})

	out := tr.Output()
	assert.Contains(t, out, "Running load")
	assert.Contains(t, out, "[1/2] copy staging_events")
	assert.Contains(t, out, "10 rows, 1ms")
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "[2/2] copy staging_songs")
	assert.Contains(t, tr.ErrorOutput(), "load run failed")
	assert.Contains(t, tr.ErrorOutput(), "access denied")
}
