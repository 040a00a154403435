package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// Target describes a warehouse backend the pipeline can run against.
type Target struct {
	// Type is the value of target.type that selects this backend.
	Type string
	// Clustered backends run on a provisioned cluster whose endpoint and
	// IAM role can be looked up when the config leaves them empty.
	Clustered bool
	// New builds an unconnected adapter. A nil logger discards output.
	New func(*slog.Logger) Adapter
}

var (
	targetsMu sync.RWMutex
	targets   = make(map[string]Target)
)

// Register makes a backend available under t.Type. Adapter packages call it
// from init.
func Register(t Target) {
	if t.Type == "" || t.New == nil {
		panic("adapter: Register needs a type and a constructor")
	}
	targetsMu.Lock()
	defer targetsMu.Unlock()
	targets[t.Type] = t
}

// Lookup returns the backend registered for typ.
func Lookup(typ string) (Target, error) {
	if typ == "" {
		return Target{}, fmt.Errorf("adapter type not specified")
	}
	targetsMu.RLock()
	t, ok := targets[typ]
	targetsMu.RUnlock()
	if !ok {
		return Target{}, &UnknownAdapterError{Type: typ, Available: Types()}
	}
	return t, nil
}

// NewAdapter builds an unconnected adapter for cfg.Type.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	t, err := Lookup(cfg.Type)
	if err != nil {
		return nil, err
	}
	return t.New(logger), nil
}

// Clustered reports whether typ is registered and runs on a provisioned
// cluster.
func Clustered(typ string) bool {
	t, err := Lookup(typ)
	return err == nil && t.Clustered
}

// Types returns the registered target types, sorted.
func Types() []string {
	targetsMu.RLock()
	defer targetsMu.RUnlock()
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// UnknownAdapterError is returned for a target.type nothing registered.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check your target.type in leapdwh.yaml", e.Type, e.Available)
}
