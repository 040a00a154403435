// Package load plans the bulk copies that fill the staging tables from
// object storage.
package load

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapdwh/pkg/catalog"
	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/dialect"
)

// Source names.
const (
	SourceEvents = "events"
	SourceSongs  = "songs"
)

// Config locates the raw data and the credential used to read it.
type Config struct {
	LogData     string // event log prefix
	LogJSONPath string // JSON-path mapping for event logs
	SongData    string // song catalog prefix
	Region      string
	RoleARN     string
}

// Sources returns the event and song copy sources, in load order.
func Sources(cfg Config) []core.CopySource {
	return []core.CopySource{
		{
			Name:       SourceEvents,
			Table:      catalog.StagingEvents,
			Location:   cfg.LogData,
			Format:     core.JSONFormat{PathsFile: cfg.LogJSONPath},
			Region:     cfg.Region,
			Credential: cfg.RoleARN,
		},
		{
			Name:       SourceSongs,
			Table:      catalog.StagingSongs,
			Location:   cfg.SongData,
			Format:     core.JSONFormat{},
			Region:     cfg.Region,
			Credential: cfg.RoleARN,
		},
	}
}

// Fetcher reads small objects such as JSON-path mapping files.
type Fetcher interface {
	ReadFile(ctx context.Context, location string) ([]byte, error)
}

// Loader renders the bulk copies for a dialect.
type Loader struct {
	schema  core.SchemaLookup
	dialect *dialect.Dialect
	sources []core.CopySource
	fetcher Fetcher
}

// New creates a loader. The fetcher is only consulted for dialects that
// resolve JSON-path mapping files client-side and may be nil otherwise.
func New(schema core.SchemaLookup, d *dialect.Dialect, sources []core.CopySource, fetcher Fetcher) *Loader {
	return &Loader{
		schema:  schema,
		dialect: d,
		sources: sources,
		fetcher: fetcher,
	}
}

// Sources returns the configured copy sources.
func (l *Loader) Sources() []core.CopySource {
	return l.sources
}

// Plan renders one copy statement per source.
func (l *Loader) Plan(ctx context.Context) ([]core.Statement, error) {
	stmts := make([]core.Statement, 0, len(l.sources))
	for _, src := range l.sources {
		table, ok := l.schema.Lookup(src.Table)
		if !ok {
			return nil, fmt.Errorf("copy %s: unknown table %s", src.Name, src.Table)
		}

		if l.dialect.ResolvesPaths() {
			paths, err := l.resolvePaths(ctx, src, table)
			if err != nil {
				return nil, fmt.Errorf("copy %s: %w", src.Name, err)
			}
			src.Paths = paths
		}

		sql, err := l.dialect.Copy(src, table)
		if err != nil {
			return nil, fmt.Errorf("failed to render copy: %w", err)
		}
		stmts = append(stmts, core.Statement{
			Stage: core.StageLoad,
			Kind:  core.StatementCopy,
			Name:  "copy " + src.Table,
			Table: src.Table,
			SQL:   sql,
		})
	}
	return stmts, nil
}

func (l *Loader) resolvePaths(ctx context.Context, src core.CopySource, table *core.TableDef) ([]string, error) {
	if src.Format.Auto() {
		return AutoPaths(table), nil
	}
	if l.fetcher == nil {
		return nil, fmt.Errorf("no fetcher to read %s", src.Format.PathsFile)
	}
	data, err := l.fetcher.ReadFile(ctx, src.Format.PathsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read jsonpaths file: %w", err)
	}
	paths, err := ParseJSONPaths(data)
	if err != nil {
		return nil, err
	}
	if err := CheckPaths(paths, table); err != nil {
		return nil, err
	}
	return paths, nil
}
