/*
Package observability turns engine lifecycle events into Prometheus metrics and structured logs.

Both are plain domain.LifecycleHooks values, so they compose with domain.MergeHooks:

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hooks := domain.MergeHooks(metrics.Hooks(), observability.LoggingHooks(logger))
*/
package observability
