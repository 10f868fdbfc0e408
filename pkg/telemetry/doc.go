// Package telemetry provides the observability surface for rsd:
// structured logging through zerolog, prometheus metrics for gather and
// render operations, and optional OpenTelemetry tracing of the
// gather/diff/render pipeline. All diagnostic output stays on stderr so
// stdout carries only pipeline data.
package telemetry
