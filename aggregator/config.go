package aggregator

import "time"

// DefaultStalenessInterval is the recommended interval after which an
// unchanging partial slice is force-emitted.
const DefaultStalenessInterval = 100 * time.Millisecond

// idleSleep is how long the worker rests between ticks that did no work,
// per the "bounded sleep (tens of microseconds)" suspension-point
// contract.
const idleSleep = 50 * time.Microsecond

// Config carries the options consumed by an Aggregator at construction.
type Config struct {
	// Name identifies this aggregator instance in log records.
	Name string

	// DisableSlicing, when true, bypasses per-link slicing: every
	// drained block becomes a singleton slice.
	DisableSlicing bool

	// StalenessInterval is the duration after which a non-empty partial
	// slice is force-emitted if no complete slice has been produced in
	// the meantime. Zero means DefaultStalenessInterval.
	StalenessInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "aggregator"
	}
	if c.StalenessInterval <= 0 {
		c.StalenessInterval = DefaultStalenessInterval
	}
	return c
}
