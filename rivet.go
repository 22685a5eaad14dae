// Package rivet compiles visual node graphs into register-addressed
// bytecode programs.
//
// The heavy lifting lives in the subpackages: graph holds the node graph
// model, compiler builds and folds the expression tree and generates
// operation records, bytecode stores and indexes the serialized records,
// and dis renders them for humans. This package ties the stages together
// behind a single call:
//
//	program, err := rivet.Compile(g)
//	if err != nil {
//	    ...
//	}
//	data, err := program.Marshal()
package rivet

import (
	"github.com/rivetvm/rivet/compiler"
	"github.com/rivetvm/rivet/graph"
	"github.com/rs/zerolog"
)

// Option configures compilation.
type Option func(*config)

type config struct {
	settings compiler.Settings
	logger   *zerolog.Logger
}

// WithSettings overrides the folding settings. The default enables all
// folding passes.
func WithSettings(settings compiler.Settings) Option {
	return func(cfg *config) {
		cfg.settings = settings
	}
}

// WithLogger attaches a logger that receives debug-level compilation
// events.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = &logger
	}
}

// Compile parses, folds and generates bytecode for the given graph,
// returning a persistable program. The graph is read, never modified.
func Compile(g *graph.Graph, opts ...Option) (*Program, error) {
	cfg := &config{settings: compiler.DefaultSettings()}
	for _, opt := range opts {
		opt(cfg)
	}
	c, err := compiler.Compile(g, &compiler.Config{
		Settings: cfg.settings,
		Logger:   cfg.logger,
	})
	if err != nil {
		return nil, err
	}
	code, err := c.Generate()
	if err != nil {
		return nil, err
	}
	return NewProgram(g.Name(), cfg.settings, code), nil
}
