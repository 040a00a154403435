// Package redshift provides an Amazon Redshift warehouse adapter.
//
// This file registers the Redshift adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapdwh/pkg/adapters/redshift"
package redshift

import (
	"log/slog"

	"github.com/leapstack-labs/leapdwh/pkg/adapter"
)

func init() {
	adapter.Register(adapter.Target{
		Type:      "redshift",
		Clustered: true,
		New:       func(logger *slog.Logger) adapter.Adapter { return New(logger) },
	})
}
