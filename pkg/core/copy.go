package core

// JSONFormat describes how JSON documents are mapped onto table columns.
type JSONFormat struct {
	// PathsFile locates a JSON-path mapping file listing one path per
	// target column, in column order. Empty means "auto": document keys
	// are matched to column names.
	PathsFile string
}

// Auto reports whether columns are matched by key name.
func (f JSONFormat) Auto() bool {
	return f.PathsFile == ""
}

// CopySource describes one bulk copy from object storage into a staging table.
type CopySource struct {
	// Name identifies the source in plans and progress output.
	Name string

	Table    string
	Location string
	Format   JSONFormat

	// Region of the bucket holding Location, when the backend needs it.
	Region string

	// Credential is the authorization reference passed to the backend,
	// an IAM role ARN for Redshift.
	Credential string

	// Paths holds the resolved JSON paths, one per table column. It is
	// filled in by the loader for dialects that cannot read the mapping
	// file themselves.
	Paths []string
}
