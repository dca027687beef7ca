// Package prometheus renders aegis engine metrics in Prometheus text
// exposition format.
//
// [NewExporter] wraps an engine and exposes an [http.Handler] for a scrape
// endpoint. Counters are named aegis_*_total and the resolution latency
// histogram is aegis_session_resolve_latency_seconds. When the source can
// report cache health an aegis_cache_up gauge is added.
//
// The package never registers anything globally. Callers mount the handler.
package prometheus
