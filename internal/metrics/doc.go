// Package metrics records subprocess lifecycle metrics with Prometheus.
//
// CommandMetrics implements execshell.CommandEventObserver and owns a private
// registry, so several executors in one process never collide on registration.
// WriteTextfile exports the registry for the node exporter textfile collector.
package metrics
