// Package metrics provides pipeline observability hooks.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never needs nil checks:
//
//	type Orchestrator struct {
//	    recorder metrics.Recorder
//	}
//
// To enable metrics, swap NoopRecorder for a PrometheusRecorder registered on
// a registry, and expose the registry with HTTPHandler.
package metrics
