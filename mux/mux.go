// Package mux implements the file muxer: an N-way ordered
// merge of per-shard input streams into a single readable byte stream,
// with inputs arriving in any order but delivered to the reader strictly
// by index. Pushed inputs are held in an index-keyed map guarded by a
// condition variable rather than a fixed-size buffer, so new shard streams
// can be registered after muxing has already started.
package mux

import (
	"io"
	"sync"

	"gitlab.com/NebulousLabs/errors"
)

// Input is one shard's byte source, registered against its index.
type Input struct {
	Index  int
	Source io.Reader
	Size   int64
}

// Muxer merges indexed inputs into one io.Reader, strictly in index order
// regardless of arrival order. The expected input count/length can either
// be fixed up front (New) or grown incrementally as more become known
// (NewOpenEnded plus Grow/Done) — the latter lets a caller paging through
// a bridge pointer listing wire in each page's shards as it arrives
// instead of waiting for every page to resolve first.
type Muxer struct {
	n    int
	l    int64
	done bool // true once n/l are final: no further Grow calls will arrive

	mu         sync.Mutex
	cond       *sync.Cond
	pending    map[int]Input
	pendingErr error // set by FailPending; surfaces once the output needs an index beyond n
	err        error
	closed     bool

	pr *io.PipeReader
	pw *io.PipeWriter
}

// New creates a Muxer expecting exactly n inputs totaling l bytes, with
// that count final from the start.
func New(n int, l int64) *Muxer {
	m := newMuxer()
	m.n = n
	m.l = l
	m.done = true
	go m.run()
	return m
}

// NewOpenEnded creates a Muxer whose expected input count/length isn't
// known yet; callers grow it via Grow as more inputs become known, and
// call Done once no more will ever arrive.
func NewOpenEnded() *Muxer {
	m := newMuxer()
	go m.run()
	return m
}

func newMuxer() *Muxer {
	m := &Muxer{pending: make(map[int]Input)}
	m.cond = sync.NewCond(&m.mu)
	m.pr, m.pw = io.Pipe()
	return m
}

// Output returns the muxer's single ordered output stream.
func (m *Muxer) Output() io.Reader {
	return m.pr
}

// Push registers an additional input. Inputs may be pushed after
// construction and in any order; the muxer holds each one until its index
// is next in line.
func (m *Muxer) Push(in Input) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.pending[in.Index] = in
	m.cond.Broadcast()
}

// Grow increases the muxer's expected input count and total length by n
// additional inputs totaling l bytes, for a muxer created with
// NewOpenEnded whose total isn't known upfront — e.g. a newly-fetched
// pointer page.
func (m *Muxer) Grow(n int, l int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.n += n
	m.l += l
	m.cond.Broadcast()
}

// Done declares that no further Grow calls will arrive: the muxer's
// current count is final, and the output stream ends cleanly once every
// pending input has drained.
func (m *Muxer) Done() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
	m.cond.Broadcast()
}

// FailPending declares that no further Grow calls will arrive because
// acquiring them failed (e.g. a later pointer page request errored).
// cause surfaces from the output only once it reaches an index beyond
// what has already been grown into and pushed; bytes already delivered
// from earlier, successfully resolved inputs are unaffected.
func (m *Muxer) FailPending(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingErr == nil {
		m.pendingErr = cause
	}
	m.done = true
	m.cond.Broadcast()
}

// Abort stops the muxer immediately, causing the output stream to return
// cause from future reads regardless of how much has already drained —
// used when an input itself fails, per the "error on any input halts the
// stream" rule (spec §4.3), as opposed to FailPending's lazy surfacing of
// a pagination failure.
func (m *Muxer) Abort(cause error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.err = cause
	m.cond.Broadcast()
	m.mu.Unlock()
	m.pw.CloseWithError(cause)
}

// run drains pending inputs strictly in index order into the pipe
// writer, waiting on Grow/Push when the next index isn't known or
// available yet, until the expected count is final and exhausted.
func (m *Muxer) run() {
	for i := 0; ; i++ {
		m.mu.Lock()
		for {
			if m.closed {
				m.mu.Unlock()
				return
			}
			in, ok := m.pending[i]
			if ok {
				delete(m.pending, i)
				m.mu.Unlock()
				if err := m.copyInput(in); err != nil {
					m.Abort(errors.AddContext(err, "mux: input failed"))
					return
				}
				break
			}
			if i >= m.n && m.done {
				if m.pendingErr != nil {
					err := m.pendingErr
					m.mu.Unlock()
					m.Abort(err)
					return
				}
				m.mu.Unlock()
				m.pw.Close()
				return
			}
			m.cond.Wait()
		}
	}
}

func (m *Muxer) copyInput(in Input) error {
	_, err := io.Copy(m.pw, in.Source)
	if closer, ok := in.Source.(io.Closer); ok {
		closer.Close() //nolint:errcheck // best-effort close of a drained input
	}
	return err
}
