// Package metric provides Prometheus-based metrics collection and an HTTP
// server for surfacestream monitoring.
//
// A MetricsRegistry owns a private prometheus.Registry with the core runtime
// metrics (messages received and applied, diagnostics, snapshot version,
// surface and listener counts, source connectivity) plus Go runtime
// collectors. Packages that need their own collectors register them by
// service and metric name; duplicate names are rejected with an Invalid
// classified error instead of panicking.
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//	go func() { _ = server.Start() }()
//	defer server.Stop()
//
// Every component accepts a nil registry and then records nothing.
package metric
