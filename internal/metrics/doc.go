// Package metrics provides the observability hooks of the content pipelines.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	coord := build.NewCoordinator(p, store, build.WithRecorder(metrics.NoopRecorder{}))
//
// When the read API is enabled, a PrometheusRecorder registered on a private
// registry is injected instead and HTTPHandler serves it on /metrics.
package metrics
