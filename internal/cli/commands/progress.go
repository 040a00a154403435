package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapdwh/internal/cli/output"
	"github.com/leapstack-labs/leapdwh/internal/pipeline"
	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// progressObserver prints pipeline events as they arrive.
func progressObserver(r *output.Renderer) pipeline.Observer {
	if r.EffectiveMode() == output.ModeJSON {
		return func(ev pipeline.Event) {
			if ev.Kind == pipeline.EventStateChange {
				return
			}
			_ = r.JSONLine(runEvent(ev))
		}
	}
	return func(ev pipeline.Event) {
		switch ev.Kind {
		case pipeline.EventRunStart:
			r.Header(1, fmt.Sprintf("Running %s", ev.Mode))
		case pipeline.EventStatementComplete:
			detail := ""
			switch ev.Status {
			case core.StatementSuccess:
				detail = fmt.Sprintf("%d rows, %s", ev.Rows, ev.Duration.Round(time.Millisecond))
			case core.StatementFailed:
				detail = fmt.Sprintf("%v", ev.Err)
			}
			label := fmt.Sprintf("[%d/%d] %s", ev.Seq, ev.Total, ev.Statement.Name)
			r.StatusLine(label, string(ev.Status), detail)
		case pipeline.EventRunComplete:
			renderRunSummary(r, ev)
		}
	}
}

func renderRunSummary(r *output.Renderer, ev pipeline.Event) {
	r.Println("")
	if ev.Err != nil {
		r.Error(fmt.Sprintf("%s run failed after %s: %v", ev.Mode, ev.Duration.Round(time.Millisecond), ev.Err))
		return
	}
	r.Success(fmt.Sprintf("%s run completed in %s", ev.Mode, ev.Duration.Round(time.Millisecond)))
	if len(ev.Counts) == 0 {
		return
	}
	rows := make([][]any, len(ev.Counts))
	for i, c := range ev.Counts {
		rows[i] = []any{c.Table, c.Rows}
	}
	r.Println("")
	r.Table([]string{"Table", "Rows"}, rows)
}

// runEvent converts a pipeline event into its JSON line form.
func runEvent(ev pipeline.Event) output.RunEvent {
	out := output.RunEvent{
		Event:     string(ev.Kind),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RunID:     ev.RunID,
		Mode:      string(ev.Mode),
		State:     string(ev.State),
	}
	switch ev.Kind {
	case pipeline.EventStatementComplete:
		out.Seq = ev.Seq
		out.Total = ev.Total
		out.Stage = string(ev.Statement.Stage)
		out.Statement = ev.Statement.Name
		out.Table = ev.Statement.Table
		out.Status = string(ev.Status)
		out.Rows = ev.Rows
		out.DurationMS = ev.Duration.Milliseconds()
	case pipeline.EventRunComplete:
		out.Status = string(core.RunStatusCompleted)
		if ev.Err != nil {
			out.Status = string(core.RunStatusFailed)
		}
		out.DurationMS = ev.Duration.Milliseconds()
		if len(ev.Counts) > 0 {
			out.Counts = make(map[string]int64, len(ev.Counts))
			for _, c := range ev.Counts {
				out.Counts[c.Table] = c.Rows
			}
		}
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	return out
}
