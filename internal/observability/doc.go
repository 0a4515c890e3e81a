// Package observability holds the Prometheus metrics, the OpenTelemetry
// tracer and the HTTP server exposing them.
package observability
