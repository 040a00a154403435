package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/load"
)

// Prober inspects object storage.
type Prober interface {
	Count(ctx context.Context, location string) (int, error)
	Exists(ctx context.Context, location string) (bool, error)
	ReadFile(ctx context.Context, location string) ([]byte, error)
}

// Preflight checks copy sources before anything is dropped.
type Preflight struct {
	prober Prober
	schema core.SchemaLookup
	logger *slog.Logger
}

// NewPreflight creates a source checker.
func NewPreflight(prober Prober, schema core.SchemaLookup, logger *slog.Logger) *Preflight {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Preflight{prober: prober, schema: schema, logger: logger}
}

// Check verifies every source concurrently. A source passes when its
// location holds at least one object and, for a mapped format, the
// mapping file exists and has one path per staging column.
func (p *Preflight) Check(ctx context.Context, sources []core.CopySource) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			return p.checkSource(ctx, src)
		})
	}
	return g.Wait()
}

func (p *Preflight) checkSource(ctx context.Context, src core.CopySource) error {
	if src.Location == "" {
		return fmt.Errorf("preflight %s: no source location configured", src.Name)
	}

	n, err := p.prober.Count(ctx, src.Location)
	if err != nil {
		return fmt.Errorf("preflight %s: %w", src.Name, err)
	}
	if n == 0 {
		return fmt.Errorf("preflight %s: no objects found at %s", src.Name, src.Location)
	}
	p.logger.Info("source ready", "source", src.Name, "location", src.Location, "objects", n)

	if src.Format.Auto() {
		return nil
	}

	ok, err := p.prober.Exists(ctx, src.Format.PathsFile)
	if err != nil {
		return fmt.Errorf("preflight %s: %w", src.Name, err)
	}
	if !ok {
		return fmt.Errorf("preflight %s: jsonpaths file %s not found", src.Name, src.Format.PathsFile)
	}

	table, found := p.schema.Lookup(src.Table)
	if !found {
		return fmt.Errorf("preflight %s: unknown table %s", src.Name, src.Table)
	}
	data, err := p.prober.ReadFile(ctx, src.Format.PathsFile)
	if err != nil {
		return fmt.Errorf("preflight %s: %w", src.Name, err)
	}
	paths, err := load.ParseJSONPaths(data)
	if err != nil {
		return fmt.Errorf("preflight %s: %w", src.Name, err)
	}
	if err := load.CheckPaths(paths, table); err != nil {
		return fmt.Errorf("preflight %s: %w", src.Name, err)
	}
	return nil
}
