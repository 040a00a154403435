package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapdwh/internal/cli/config"
	"github.com/leapstack-labs/leapdwh/internal/cli/output"
	"github.com/leapstack-labs/leapdwh/internal/objectstore"
	"github.com/leapstack-labs/leapdwh/internal/pipeline"
	"github.com/leapstack-labs/leapdwh/pkg/adapter"
	"github.com/leapstack-labs/leapdwh/pkg/catalog"
	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/load"
)

// Check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
	checkSkip  = "skip"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, sources and warehouse health",
		Long: `Check that a pipeline run can succeed before starting one.

The doctor command verifies:
- Configuration (target, sources)
- Source data (objects present, JSON-path mapping fits the staging table)
- Cluster endpoint and IAM role (redshift targets)
- Warehouse connection, tables and row counts

Exits non-zero when any check fails.`,
		Example: `  # Run health check
  leapdwh doctor

  # Output as JSON
  leapdwh doctor --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Target          string        `json:"target"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations,omitempty"`
	IssueCount      int           `json:"issue_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"`
	Details []string `json:"details,omitempty"`
}

func (c HealthCheck) failed() bool { return c.Status == checkError }

func runDoctor(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	checks := examine(cmd.Context(), cc)
	out := buildDoctorOutput(cc.Cfg, checks)

	var err error
	switch r.EffectiveMode() {
	case output.ModeJSON:
		err = r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, c := range checks {
		if c.failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", failed)
	}
	return nil
}

// examine runs the checks in order. A failing check skips the checks
// that depend on it.
func examine(ctx context.Context, cc *CommandContext) []HealthCheck {
	cfg := cc.Cfg
	var checks []HealthCheck

	configured := checkConfig(cfg)
	checks = append(checks, configured)

	sources := HealthCheck{ID: "CF02", Name: "Sources configured", Group: "config", Status: checkPass}
	if err := cfg.ValidateSources(); err != nil {
		sources.Status = checkError
		sources.Details = errorLines(err)
	}
	checks = append(checks, sources)

	srcs := load.Sources(loadConfig(cfg))
	if sources.failed() {
		checks = append(checks,
			skipped("SR01", "Event log source", "sources"),
			skipped("SR02", "Song catalog source", "sources"))
	} else {
		checks = append(checks, checkSources(ctx, cfg, srcs, cc.Logger)...)
	}

	if configured.failed() {
		return append(checks,
			skipped("WH01", "Warehouse connection", "warehouse"),
			skipped("WH02", "Tables created", "warehouse"),
			skipped("WH03", "Tables populated", "warehouse"))
	}

	if adapter.Clustered(cfg.Target.Type) {
		cluster := checkCluster(ctx, cfg, cc.Logger)
		checks = append(checks, cluster)
		if cluster.failed() {
			return append(checks,
				skipped("WH01", "Warehouse connection", "warehouse"),
				skipped("WH02", "Tables created", "warehouse"),
				skipped("WH03", "Tables populated", "warehouse"))
		}
	}

	return append(checks, checkWarehouse(ctx, cc)...)
}

func checkConfig(cfg *config.Config) HealthCheck {
	check := HealthCheck{ID: "CF01", Name: "Target configured", Group: "config", Status: checkPass}
	if err := cfg.Validate(); err != nil {
		check.Status = checkError
		check.Details = errorLines(err)
		return check
	}
	if path := config.GetConfigFileUsed(); path != "" {
		check.Details = []string{"config file: " + path}
	} else {
		check.Details = []string{"no config file, using defaults"}
	}
	check.Details = append(check.Details, "target: "+targetLabel(cfg.Target))
	return check
}

func checkSources(ctx context.Context, cfg *config.Config, srcs []core.CopySource, logger *slog.Logger) []HealthCheck {
	preflight := pipeline.NewPreflight(objectstore.New(cfg.Sources.Region, logger), catalog.New(), logger)

	ids := map[string]HealthCheck{
		load.SourceEvents: {ID: "SR01", Name: "Event log source", Group: "sources"},
		load.SourceSongs:  {ID: "SR02", Name: "Song catalog source", Group: "sources"},
	}
	checks := make([]HealthCheck, 0, len(srcs))
	for _, src := range srcs {
		check := ids[src.Name]
		check.Status = checkPass
		check.Details = []string{src.Location}
		if err := preflight.Check(ctx, []core.CopySource{src}); err != nil {
			check.Status = checkError
			check.Details = append(check.Details, err.Error())
		}
		checks = append(checks, check)
	}
	return checks
}

func checkCluster(ctx context.Context, cfg *config.Config, logger *slog.Logger) HealthCheck {
	check := HealthCheck{ID: "CL01", Name: "Cluster endpoint and role", Group: "cluster", Status: checkPass}
	explicit := cfg.Target.Host != "" && cfg.Sources.IAMRoleARN != ""

	if err := resolveCluster(ctx, cfg, logger); err != nil {
		check.Status = checkError
		check.Details = errorLines(err)
		return check
	}
	check.Details = []string{
		fmt.Sprintf("endpoint: %s:%d", cfg.Target.Host, cfg.Target.Port),
		"role: " + cfg.Sources.IAMRoleARN,
	}
	if explicit {
		check.Details = append(check.Details, "taken from configuration")
	} else {
		check.Details = append(check.Details, "looked up from cluster "+cfg.Cluster.Identifier)
	}
	return check
}

func checkWarehouse(ctx context.Context, cc *CommandContext) []HealthCheck {
	conn := HealthCheck{ID: "WH01", Name: "Warehouse connection", Group: "warehouse", Status: checkPass}
	adp, d, err := connectTarget(ctx, cc)
	if err != nil {
		conn.Status = checkError
		conn.Details = errorLines(err)
		return []HealthCheck{conn,
			skipped("WH02", "Tables created", "warehouse"),
			skipped("WH03", "Tables populated", "warehouse")}
	}
	defer func() { _ = adp.Close() }()
	conn.Details = []string{"dialect: " + d.Name}

	created := HealthCheck{ID: "WH02", Name: "Tables created", Group: "warehouse", Status: checkPass}
	populated := HealthCheck{ID: "WH03", Name: "Tables populated", Group: "warehouse", Status: checkPass}

	var missing, empty []string
	for _, t := range catalog.New().Tables() {
		meta, err := adp.GetTableMetadata(ctx, t.Name)
		switch {
		case errors.Is(err, core.ErrTableNotFound):
			missing = append(missing, t.Name)
			continue
		case err != nil:
			created.Status = checkError
			created.Details = append(created.Details, err.Error())
			continue
		}
		populated.Details = append(populated.Details, fmt.Sprintf("%s: %d rows", t.Name, meta.RowCount))
		if meta.RowCount == 0 {
			empty = append(empty, t.Name)
		}
	}

	if len(missing) > 0 && created.Status == checkPass {
		created.Status = checkWarn
		created.Details = append(created.Details, "missing: "+strings.Join(missing, ", "))
	}
	if len(empty) > 0 {
		populated.Status = checkWarn
		populated.Details = append(populated.Details, "empty: "+strings.Join(empty, ", "))
	}
	if created.Status != checkPass && len(populated.Details) == 0 {
		populated = skipped("WH03", "Tables populated", "warehouse")
	}
	return []HealthCheck{conn, created, populated}
}

func skipped(id, name, group string) HealthCheck {
	return HealthCheck{ID: id, Name: name, Group: group, Status: checkSkip}
}

// errorLines splits a joined error into one detail per line.
func errorLines(err error) []string {
	return strings.Split(err.Error(), "\n")
}

func buildDoctorOutput(cfg *config.Config, checks []HealthCheck) *DoctorOutput {
	issues := 0
	for _, c := range checks {
		if c.Status == checkWarn || c.Status == checkError {
			issues++
		}
	}
	return &DoctorOutput{
		Target:          cfg.Target.Type,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issues,
	}
}

// calculateHealthScore computes a health score from 0-100. Errors cost
// twice as much as warnings; skipped checks cost nothing.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, check := range checks {
		switch check.Status {
		case checkError:
			score -= 20
		case checkWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	for _, check := range checks {
		if check.Status != checkWarn && check.Status != checkError {
			continue
		}
		if rec := getRecommendation(check.ID); rec != "" {
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(id string) string {
	switch id {
	case "CF01":
		return "Set target.type to a registered adapter (run 'leapdwh init' for a starter config)"
	case "CF02":
		return "Set sources.log_data, sources.song_data and, for redshift, sources.region"
	case "SR01", "SR02":
		return "Check the source locations and that your AWS credentials can read them"
	case "CL01":
		return "Create the cluster with 'leapdwh cluster create' or set target.host and sources.iam_role_arn"
	case "WH01":
		return "Check target credentials and that the cluster accepts connections from this address"
	case "WH02":
		return "Create the tables with 'leapdwh load'"
	case "WH03":
		return "Populate the star schema with 'leapdwh run'"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header.Render("leapdwh Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case checkWarn:
			icon = styles.Warning.Render("!")
		case checkError:
			icon = styles.Error.Render("✗")
		case checkSkip:
			icon = styles.Muted.Render("-")
		}
		r.Printf("   %s %s: %s\n", icon, check.ID, check.Name)

		for _, detail := range check.Details {
			r.Println(styles.Muted.Render("       " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Bold.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# leapdwh Health Report")
	r.Println("")
	r.Println(output.FormatKeyValue("Target", out.Target))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(output.FormatHeader(2, titleCaser.String(currentGroup)))
			r.Println("")
		}
		r.Printf("- **[%s]** %s: %s\n", strings.ToUpper(check.Status), check.ID, check.Name)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}
