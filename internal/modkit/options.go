package modkit

import "time"

// Option mutates build configuration for a module
type Option func(*buildCfg)

// buildCfg is internal wiring state for options
type buildCfg struct {
	name    string
	ports   any
	dryRun  bool
	timeout time.Duration
}

// WithName overrides the module name used in logs
func WithName(name string) Option {
	return func(c *buildCfg) { c.name = name }
}

// WithPorts injects cross module ports declared by another module
// the concrete type is owned by the importing module
func WithPorts[T any](p T) Option {
	return func(c *buildCfg) { c.ports = p }
}

// WithDryRun makes the module skip durable writes
func WithDryRun(on bool) Option {
	return func(c *buildCfg) { c.dryRun = on }
}

// WithTimeout caps each unit of module work; zero leaves the caller's deadline alone
func WithTimeout(d time.Duration) Option {
	return func(c *buildCfg) { c.timeout = d }
}
