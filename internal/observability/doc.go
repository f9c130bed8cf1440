// Package observability provides the append-only event log and the alert
// engine for opq. The event log is an ordered arena persisted as a single
// document; alerts are derived on demand from annotated task views.
package observability
