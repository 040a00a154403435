package output

// RunEvent is one JSON line of pipeline progress.
type RunEvent struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	Mode      string `json:"mode,omitempty"`
	State     string `json:"state,omitempty"`

	Seq       int    `json:"seq,omitempty"`
	Total     int    `json:"total,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Statement string `json:"statement,omitempty"`
	Table     string `json:"table,omitempty"`
	Status    string `json:"status,omitempty"`
	Rows      int64  `json:"rows,omitempty"`

	DurationMS int64            `json:"duration_ms,omitempty"`
	Counts     map[string]int64 `json:"counts,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// RenderedStatement is a statement printed by the render command.
type RenderedStatement struct {
	Stage string `json:"stage"`
	Name  string `json:"name"`
	SQL   string `json:"sql"`
}

// RenderOutput is the JSON output of the render command.
type RenderOutput struct {
	Dialect    string              `json:"dialect"`
	Statements []RenderedStatement `json:"statements"`
}

// TableInfo describes a catalog table.
type TableInfo struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Columns   []string `json:"columns"`
	Key       string   `json:"primary_key,omitempty"`
	SortKey   string   `json:"sort_key,omitempty"`
	DistStyle string   `json:"dist_style,omitempty"`
}

// RunInfo describes a recorded run.
type RunInfo struct {
	ID          string          `json:"id"`
	Mode        string          `json:"mode"`
	Target      string          `json:"target"`
	Status      string          `json:"status"`
	State       string          `json:"state"`
	StartedAt   string          `json:"started_at"`
	CompletedAt string          `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	Statements  []StatementInfo `json:"statements,omitempty"`
}

// StatementInfo describes a recorded statement.
type StatementInfo struct {
	Seq        int    `json:"seq"`
	Stage      string `json:"stage"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Rows       int64  `json:"rows"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ClusterInfo describes a provisioned cluster.
type ClusterInfo struct {
	Identifier string   `json:"identifier"`
	Status     string   `json:"status"`
	Host       string   `json:"host,omitempty"`
	Port       int      `json:"port,omitempty"`
	DBName     string   `json:"db_name,omitempty"`
	NodeType   string   `json:"node_type,omitempty"`
	Nodes      int      `json:"nodes,omitempty"`
	VpcID      string   `json:"vpc_id,omitempty"`
	RoleARNs   []string `json:"role_arns,omitempty"`
}

// TableSchema describes a table as it exists in the warehouse.
type TableSchema struct {
	Schema   string       `json:"schema"`
	Name     string       `json:"name"`
	Columns  []ColumnInfo `json:"columns"`
	RowCount int64        `json:"row_count"`
}

// ColumnInfo describes a warehouse column.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Position int    `json:"position"`
}
