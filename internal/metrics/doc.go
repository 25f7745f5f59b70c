// Package metrics provides the observability hooks for the focus daemon.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	type Machine struct {
//	    recorder metrics.Recorder
//	}
//
// The daemon swaps in a PrometheusRecorder bound to its own registry and serves
// that registry on /metrics via HTTPHandler.
package metrics
