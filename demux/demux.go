// Package demux splits a byte source into a sequence of fixed-size shard
// substreams. It generalizes the teacher's StreamShard
// (acejam-Sia/modules/renter/uploadstreamer.go) from "one chunk read ahead
// of a heap push" to "a channel of shard-start events the upload
// orchestrator drives," keeping the same single-byte Peek trick the
// teacher uses to detect end-of-stream without over-reading.
package demux

import (
	"io"
	"sync"

	"gitlab.com/NebulousLabs/errors"
)

// ErrDemux wraps a source read failure observed before any shard was
// emitted.
type ErrDemux struct {
	Cause error
}

func (e *ErrDemux) Error() string {
	return "demux: " + e.Cause.Error()
}

func (e *ErrDemux) Unwrap() error {
	return e.Cause
}

// Event is either a new shard substream (Stream non-nil) or the terminal
// end-of-source signal (Finished true) or a fatal Err.
type Event struct {
	Stream   *ShardStream
	Index    int
	Finished bool
	Err      error
}

// peekReader wraps src with a 1-byte lookahead buffer so the demuxer can
// tell whether a shard that read exactly shardSize bytes was also the last
// shard, without consuming a byte that belongs to the next one.
type peekReader struct {
	r    io.Reader
	peek []byte
}

func (p *peekReader) Read(b []byte) (int, error) {
	n := 0
	if len(p.peek) > 0 {
		b[0] = p.peek[0]
		p.peek = p.peek[:0]
		b = b[1:]
		n++
		if len(b) == 0 {
			return n, nil
		}
	}
	nn, err := p.r.Read(b)
	return n + nn, err
}

// hasMore reports whether the source has at least one more byte, buffering
// it in peek if so.
func (p *peekReader) hasMore() (bool, error) {
	if len(p.peek) > 0 {
		return true, nil
	}
	buf := make([]byte, 1)
	n, err := p.r.Read(buf)
	if n > 0 {
		p.peek = buf[:1]
		return true, nil
	}
	if err == io.EOF || err == nil {
		return false, nil
	}
	return false, err
}

// ShardStream is a single shard's byte range, readable exactly once. It
// must be fully drained (or discarded) before the demuxer advances to the
// next shard — "shard N's stream ends before shard N+1's begins" (spec
// §4.2).
type ShardStream struct {
	index int
	limit int64

	mu   sync.Mutex
	src  *peekReader
	done chan struct{}
	n    int64
}

// Index is this shard's 0-based position in the file.
func (s *ShardStream) Index() int {
	return s.index
}

// Read implements io.Reader, yielding up to shardSize bytes total for this
// shard before returning io.EOF.
func (s *ShardStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n >= s.limit {
		return 0, io.EOF
	}
	remaining := s.limit - s.n
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := s.src.Read(p)
	s.n += int64(n)
	if err == nil && s.n >= s.limit {
		err = io.EOF
	}
	return n, err
}

// Close signals that the consumer is done with this shard, unblocking the
// demuxer to advance to the next one.
func (s *ShardStream) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// discard reads and drops any bytes the consumer left unread, so the
// demuxer's cursor lands exactly at the next shard boundary regardless of
// whether the caller read the full shard.
func (s *ShardStream) discard() error {
	_, err := io.Copy(io.Discard, s)
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// doneSignal is the minimal cancellation interface Demux needs, satisfied
// by context.Context.
type doneSignal interface {
	Done() <-chan struct{}
}

// Demux reads src in shardSize-byte pieces and sends one Event per shard
// on the returned channel, followed by a final Event with Finished set.
// The channel is closed after the terminal event. Demux blocks production
// of shard N+1 until shard N's stream has been Close()'d by its consumer
// (backpressure: the caller controls how fast shards are produced) and
// fails with ErrDemux if src errors before any shard has been emitted.
func Demux(ctx doneSignal, src io.Reader, shardSize int64) <-chan Event {
	events := make(chan Event)
	pr := &peekReader{r: src}
	go func() {
		defer close(events)
		index := 0
		emitted := false
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// Peek before starting a shard: an empty source (or one that
			// ended exactly on the previous shard boundary) produces zero
			// shards rather than one empty shard.
			more, err := pr.hasMore()
			if err != nil {
				if !emitted {
					events <- Event{Err: &ErrDemux{Cause: err}}
					return
				}
				events <- Event{Err: errors.AddContext(err, "demux: source failed between shards")}
				return
			}
			if !more {
				events <- Event{Finished: true}
				return
			}

			stream := &ShardStream{
				index: index,
				limit: shardSize,
				src:   pr,
				done:  make(chan struct{}),
			}
			select {
			case events <- Event{Stream: stream, Index: index}:
			case <-ctx.Done():
				return
			}

			<-stream.done
			if err := stream.discard(); err != nil {
				events <- Event{Err: errors.AddContext(err, "demux: source failed mid-stream")}
				return
			}
			emitted = true

			if stream.n < shardSize {
				// Source was exhausted mid-shard: this was the last one.
				events <- Event{Finished: true}
				return
			}
			index++
		}
	}()
	return events
}
