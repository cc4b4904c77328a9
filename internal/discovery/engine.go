package discovery

import (
	"github.com/clickgraph/clickgraph/internal/backend"
	"github.com/clickgraph/clickgraph/internal/logging"
)

// Engine is the schema-discovery surface behind the three /schemas/*
// read-only endpoints. It never writes to the SchemaCatalog; everything
// it returns is a suggestion that a human reviews before calling
// /schemas/load.
type Engine struct {
	backend *backend.Client
	logger  *logging.Logger
}

// NewEngine wires an Engine against a live backend connection. be must not
// be nil: every operation Engine performs requires a round trip to
// system.columns.
func NewEngine(be *backend.Client) *Engine {
	return &Engine{backend: be, logger: logging.Component("discovery")}
}
