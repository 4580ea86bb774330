package modkit

import "time"

// Built is a plain struct with the fields modules care about
type Built struct {
	Name    string
	Ports   any
	DryRun  bool
	Timeout time.Duration
}

// Build applies Option funcs and returns a plain struct
// def is used when no WithName option is given
func Build(def string, opts ...Option) Built {
	c := buildCfg{name: def}
	for _, o := range opts {
		o(&c)
	}
	return Built{
		Name:    c.name,
		Ports:   c.ports,
		DryRun:  c.dryRun,
		Timeout: c.timeout,
	}
}
