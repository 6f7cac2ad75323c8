package mux

import (
	"bytes"
	"errors"
	"io"
	"io/ioutil"
	"math/rand"
	"testing"

	"gitlab.com/NebulousLabs/fastrand"
)

func TestMuxerOrdersOutputByIndexRegardlessOfArrival(t *testing.T) {
	const n = 8
	chunks := make([][]byte, n)
	var want bytes.Buffer
	for i := range chunks {
		chunks[i] = fastrand.Bytes(16 + i)
		want.Write(chunks[i])
	}

	order := rand.Perm(n)
	m := New(n, int64(want.Len()))
	for _, i := range order {
		m.Push(Input{Index: i, Source: bytes.NewReader(chunks[i]), Size: int64(len(chunks[i]))})
	}

	got, err := ioutil.ReadAll(m.Output())
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if !bytes.Equal(got, want.Bytes()) {
		t.Fatal("muxer output does not match concatenation of inputs in index order")
	}
}

func TestMuxerSingleInput(t *testing.T) {
	data := fastrand.Bytes(64)
	m := New(1, int64(len(data)))
	m.Push(Input{Index: 0, Source: bytes.NewReader(data), Size: int64(len(data))})
	got, err := ioutil.ReadAll(m.Output())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("muxer output does not match the single input")
	}
}

type errReader struct{ err error }

func (e errReader) Read(p []byte) (int, error) { return 0, e.err }

func TestMuxerAbortPropagatesToOutput(t *testing.T) {
	m := New(1, 0)
	cause := io.ErrUnexpectedEOF
	m.Abort(cause)
	_, err := m.Output().Read(make([]byte, 1))
	if err != cause {
		t.Fatalf("expected Abort's cause to surface from Output(), got %v", err)
	}
}

func TestMuxerInputReadErrorAbortsStream(t *testing.T) {
	m := New(1, 0)
	m.Push(Input{Index: 0, Source: errReader{err: io.ErrClosedPipe}})
	_, err := ioutil.ReadAll(m.Output())
	if err == nil {
		t.Fatal("expected an error reading from a muxer whose input failed")
	}
}

// TestMuxerOpenEndedGrowsAcrossBatches exercises the progressive-resolution
// path CreateFileStream relies on: inputs arrive in batches ("pages"),
// growing the muxer's expected total incrementally rather than all at once.
func TestMuxerOpenEndedGrowsAcrossBatches(t *testing.T) {
	batches := [][]byte{fastrand.Bytes(16), fastrand.Bytes(32), fastrand.Bytes(8)}
	var want bytes.Buffer
	for _, b := range batches {
		want.Write(b)
	}

	m := NewOpenEnded()
	for i, b := range batches {
		m.Grow(1, int64(len(b)))
		m.Push(Input{Index: i, Source: bytes.NewReader(b), Size: int64(len(b))})
	}
	m.Done()

	got, err := ioutil.ReadAll(m.Output())
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if !bytes.Equal(got, want.Bytes()) {
		t.Fatal("muxer output does not match concatenation of batches in order")
	}
}

// TestMuxerFailPendingPreservesAlreadyDeliveredBytes verifies that a
// pagination-style failure (FailPending) only surfaces once the output
// reaches an index beyond what was already resolved, per spec §4.6 step 5:
// bytes already delivered from earlier, successfully resolved inputs must
// not be discarded.
func TestMuxerFailPendingPreservesAlreadyDeliveredBytes(t *testing.T) {
	first := fastrand.Bytes(24)

	m := NewOpenEnded()
	m.Grow(1, int64(len(first)))
	m.Push(Input{Index: 0, Source: bytes.NewReader(first)})

	got, err := ioutil.ReadAll(io.LimitReader(m.Output(), int64(len(first))))
	if err != nil {
		t.Fatalf("unexpected error reading the first, successfully resolved input: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Fatal("first input's bytes were not delivered intact")
	}

	cause := errors.New("later page fetch failed")
	m.FailPending(cause)

	_, err = m.Output().Read(make([]byte, 1))
	if err != cause {
		t.Fatalf("expected FailPending's cause once the output needs a never-arriving index, got %v", err)
	}
}
