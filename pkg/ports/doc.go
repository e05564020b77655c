// Package ports declares the interfaces docforge's core consumes: the
// generation backend capability, the cache store, the telemetry sink, and
// the metrics collector. Adapters under pkg/adapters implement them.
package ports
