// Package metrics provides a lightweight recorder for per-operation metrics
// (texture load latency, frames rendered, poll counts). Each flush writes a
// single structured zerolog event, so metrics land next to the logs that
// explain them without a separate exporter.
package metrics

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

// DefaultNamespace groups every metric the skybox tools emit.
const DefaultNamespace = "SkyboxViewer"

// metricDef holds the unit and value for a single metric.
type metricDef struct {
	Unit  string
	Value float64
}

// Recorder accumulates dimensions, metrics, and properties for a single flush.
// It is NOT safe for concurrent use from multiple goroutines; create one per operation.
type Recorder struct {
	namespace  string
	logger     *zerolog.Logger
	dimensions map[string]string
	metrics    map[string]metricDef
	properties map[string]interface{}
}

// New creates a Recorder that flushes to the global logger.
func New(namespace string) *Recorder {
	return NewWithLogger(namespace, &log.Logger)
}

// NewWithLogger creates a Recorder that flushes to the given logger.
func NewWithLogger(namespace string, logger *zerolog.Logger) *Recorder {
	return &Recorder{
		namespace:  namespace,
		logger:     logger,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		properties: make(map[string]interface{}),
	}
}

// Dimension adds a dimension key-value pair identifying what was measured.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a unit.
// Use the Unit* constants (UnitMilliseconds, UnitCount, UnitBytes, UnitNone).
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Unit: unit, Value: value}
	return r
}

// Count is a convenience for recording a count metric (value = 1).
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a non-metric field to the event.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the collected metrics as one INFO event.
// After flushing, the Recorder should not be reused.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return // Nothing to emit
	}

	evt := r.logger.Info().Str("namespace", r.namespace)

	if len(r.dimensions) > 0 {
		d := zerolog.Dict()
		for _, k := range sortedKeys(r.dimensions) {
			d = d.Str(k, r.dimensions[k])
		}
		evt = evt.Dict("dimensions", d)
	}

	m := zerolog.Dict()
	names := make([]string, 0, len(r.metrics))
	for k := range r.metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		def := r.metrics[name]
		m = m.Dict(name, zerolog.Dict().Float64("value", def.Value).Str("unit", def.Unit))
	}
	evt = evt.Dict("metrics", m)

	for k, v := range r.properties {
		evt = evt.Interface(k, v)
	}

	evt.Msg("metrics")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
