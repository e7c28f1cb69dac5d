package logrecord

import "context"

// Sink consumes batches of records. Implementations must be safe for
// repeated calls and honor ctx deadlines.
type Sink interface {
	Consume(ctx context.Context, batch []Record) error
	Close(ctx context.Context) error
}

// Emitter publishes individual records; Hub satisfies it so callers stay
// agnostic about buffering.
type Emitter interface {
	Emit(rec Record)
}
