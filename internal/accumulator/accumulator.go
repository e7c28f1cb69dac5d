// Package accumulator assembles a chunked insert body into one bounded buffer
// and parses it once the transport signals the end of the body.
package accumulator

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/catalog-service/internal/catalog"
)

// DefaultCapacity bounds an insert payload when no capacity is configured.
const DefaultCapacity = 512

// readChunkSize is the chunk size used when draining an io.Reader.
const readChunkSize = 256

// State is the accumulator's position in the body lifecycle.
type State int

// Accumulator states.
const (
	StateEmpty State = iota
	StateAccumulating
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Form is the parsed insert payload.
type Form struct {
	ID   string
	Name string
}

// Accumulator buffers one request body. Bytes past the capacity are dropped,
// never buffered and never reported as an error; Dropped tells how many.
// An Accumulator belongs to a single request and is not safe for concurrent
// use.
type Accumulator struct {
	capacity int
	state    State
	buf      []byte
	dropped  int
}

// New creates an accumulator whose buffer holds at most capacity bytes.
func New(capacity int) *Accumulator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Accumulator{capacity: capacity}
}

// State reports the current state.
func (a *Accumulator) State() State {
	return a.state
}

// Len reports the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Dropped reports how many bytes were discarded because the buffer was full.
func (a *Accumulator) Dropped() int {
	return a.dropped
}

// Feed processes one chunk delivered by the transport. A zero-length chunk
// while accumulating marks the end of the body: the buffer is parsed, the
// accumulator returns to StateEmpty and done is true. Every other call
// buffers what fits and asks for more.
func (a *Accumulator) Feed(chunk []byte) (form Form, done bool) {
	switch a.state {
	case StateEmpty:
		a.buf = make([]byte, 0, a.capacity)
		a.dropped = 0
		a.state = StateAccumulating
		a.appendBounded(chunk)
		return Form{}, false
	default:
		if len(chunk) > 0 {
			a.appendBounded(chunk)
			return Form{}, false
		}
		form = ParseForm(string(a.buf))
		a.buf = nil
		a.state = StateEmpty
		return form, true
	}
}

func (a *Accumulator) appendBounded(chunk []byte) {
	room := a.capacity - len(a.buf)
	if room <= 0 {
		a.dropped += len(chunk)
		return
	}
	if len(chunk) > room {
		a.dropped += len(chunk) - room
		chunk = chunk[:room]
	}
	a.buf = append(a.buf, chunk...)
}

// Drain feeds r to the accumulator chunk by chunk, then signals the end of
// the body and returns the parsed form. The whole body is consumed even when
// it exceeds the capacity.
func (a *Accumulator) Drain(r io.Reader) (Form, error) {
	chunk := make([]byte, readChunkSize)
	if a.state == StateEmpty {
		a.Feed(nil)
	}
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			a.Feed(chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			a.Reset()
			return Form{}, fmt.Errorf("read request body: %w", err)
		}
	}
	form, _ := a.Feed(nil)
	return form, nil
}

// Reset discards any buffered bytes and returns to StateEmpty.
func (a *Accumulator) Reset() {
	a.buf = nil
	a.dropped = 0
	a.state = StateEmpty
}

const (
	idPrefix   = "id="
	namePrefix = "&catalogname="
)

// ParseForm extracts id and catalogname from "id=<v>&catalogname=<v>".
// Values end at '&', at a literal '"' or at the end of input; values are not
// URL-decoded. An id longer than catalog.MaxIDLen leaves the name unparsed,
// and a name longer than catalog.MaxNameLen is truncated. Missing pieces come
// back empty, which the store rejects.
func ParseForm(body string) Form {
	var form Form
	rest, ok := strings.CutPrefix(body, idPrefix)
	if !ok {
		return form
	}
	id, rest := scanValue(rest)
	if len(id) > catalog.MaxIDLen {
		form.ID = id[:catalog.MaxIDLen]
		return form
	}
	form.ID = id

	rest, ok = strings.CutPrefix(rest, namePrefix)
	if !ok || form.ID == "" {
		return form
	}
	name, _ := scanValue(rest)
	if len(name) > catalog.MaxNameLen {
		name = name[:catalog.MaxNameLen]
	}
	form.Name = name
	return form
}

func scanValue(s string) (value, rest string) {
	if i := strings.IndexAny(s, "&\""); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}
