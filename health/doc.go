// Package health reports whether a surfacestream process is doing its job.
//
// A Status has one of three levels. Healthy means input is flowing and every
// line was accepted. Degraded means the feed is being applied but some lines
// or messages were rejected. Unhealthy means the source failed or stopped
// with an error.
//
// A Monitor combines stored statuses (set by Update when a state change is
// observed, such as a source failing) with checks evaluated on every read
// (such as a session summarising its diagnostics). Handler exposes the
// aggregate as JSON and answers 503 when the aggregate is unhealthy, so it
// can serve as a readiness probe:
//
//	monitor := health.NewMonitor()
//	monitor.AddCheck("session", sess.Health)
//	monitor.Update("source", health.NewHealthy("source", "consuming"))
//	srv.SetHealthHandler(monitor.Handler("surfacestream"))
//
// Messages built from errors are sanitized: URLs, paths, addresses and
// credentials are replaced with placeholders before they are exposed.
package health
