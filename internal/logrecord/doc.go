// Package logrecord carries per-request log records from the dispatcher to
// pluggable sinks without ever blocking the request path.
//
// A Hub buffers records in a bounded channel and flushes them to its sinks in
// batches, either when a batch fills up or when the batch wait expires. When
// the buffer is full new records are dropped and a rate-limited warning is
// logged; emitting never fails and never waits on a sink.
package logrecord
