package snapshot

import (
	"context"
	"sync"
)

// Stream is the scoped resource a fetch yields: a finite stream of decoded
// byte chunks. The channel returned by Chunks closes when every bounded
// partition has been drained or a terminal error occurred; Err is valid
// after that. Releasing the stream with Close (on success, error, or
// cancellation) tears down all partition tasks and the broker client; no
// broker I/O happens afterwards.
type Stream struct {
	chunks   chan []byte
	finished chan struct{}
	cancel   context.CancelFunc

	once sync.Once
	err  error // written once before finished closes
}

// Chunks returns the merged chunk channel. Chunks from different
// partitions interleave arbitrarily; within a partition they arrive in
// offset order.
func (s *Stream) Chunks() <-chan []byte { return s.chunks }

// Err reports the terminal error of the fetch, if any. It blocks until the
// stream has finished.
func (s *Stream) Err() error {
	<-s.finished
	return s.err
}

// Close releases the stream. Idempotent; safe on every exit path.
func (s *Stream) Close() error {
	s.once.Do(s.cancel)
	<-s.finished
	return nil
}
