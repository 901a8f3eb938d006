// Package telemetry wires OpenTelemetry exporters and meters for the
// bezout compute service.
//
// It centralises trace provider setup, applies service resource
// attributes, and offers helpers that attach evaluation results and
// latency metrics to spans so operators can correlate the two algorithm
// variants' behaviour in production.
package telemetry
