// Package metrics exports indexer progress to Prometheus and serves the
// /metrics and /healthz endpoints. Collectors register with an injected
// registry; nothing is global.
package metrics
