// Package diagnostics implements the diagnostics sink: an append-only
// JSONL event stream fed by every component's predicate checks, filter
// evaluations, and FSM transitions. Generalizes the teacher's pub/sub
// event bus into a single bounded-channel async writer, grounded on the
// reference diagnostics collector's record shape.
package diagnostics

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/il101/breakout-engine/pkg/types"
	"go.uber.org/zap"
)

// Sink is the interface components depend on to record diagnostics
// events without coupling to the writer implementation.
type Sink interface {
	Record(event types.DiagnosticsEvent)
}

// NopSink discards every event; useful in tests.
type NopSink struct{}

func (NopSink) Record(types.DiagnosticsEvent) {}

// FileSink appends events as JSON lines to a file. The callback path
// never blocks on I/O: Record enqueues onto a bounded channel drained by
// a single writer goroutine, matching the venue client's callback
// contract of never blocking producers.
type FileSink struct {
	logger *zap.Logger

	events chan types.DiagnosticsEvent
	doneCh chan struct{}

	mu      sync.Mutex
	dropped int64
}

// NewFileSink opens path for appending (creating it if missing) and starts the writer
// goroutine. Call Close to flush and stop it.
func NewFileSink(logger *zap.Logger, path string, bufferSize int) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	if bufferSize <= 0 {
		bufferSize = 4096
	}

	s := &FileSink{
		logger: logger.Named("diagnostics"),
		events: make(chan types.DiagnosticsEvent, bufferSize),
		doneCh: make(chan struct{}),
	}
	go s.run(f)
	return s, nil
}

func (s *FileSink) run(f *os.File) {
	defer close(s.doneCh)
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	enc := json.NewEncoder(w)
	for ev := range s.events {
		if err := enc.Encode(ev); err != nil {
			s.logger.Warn("failed to encode diagnostics event", zap.Error(err))
		}
	}
}

// Record enqueues an event, dropping it (and counting the drop) if the
// buffer is full rather than blocking the caller.
func (s *FileSink) Record(event types.DiagnosticsEvent) {
	select {
	case s.events <- event:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped returns the number of events dropped due to a full buffer.
func (s *FileSink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops accepting events and waits for the writer to flush.
func (s *FileSink) Close() error {
	close(s.events)
	<-s.doneCh
	return nil
}
