// Package model holds the data model shared across the bridge, demux/mux,
// data-channel, and orchestrator packages: Shard, Frame, Pointer, Contact,
// Bucket, FileEntry, Token, and per-shard transfer state.
package model

import "time"

// Operation is a token's scope: PUSH for uploads, PULL for downloads.
type Operation string

// Token operations.
const (
	OperationPush Operation = "PUSH"
	OperationPull Operation = "PULL"
)

// Contact describes a peer on the overlay: its network address and the
// 160-bit nodeID derived from its public key.
type Contact struct {
	Address  string `json:"address"`
	Port     uint16 `json:"port"`
	NodeID   string `json:"nodeID"`
	Protocol string `json:"protocol"`
}

// Farmer is the contact and placement metadata the bridge returns when a
// shard is assigned to a storage peer.
type Farmer struct {
	Contact Contact `json:"farmer"`
	Token   string  `json:"token"`
}

// Shard is a contiguous, content-addressed slice of a source file. Hash and Tree are only populated once the demuxer's substream for
// this shard has ended.
type Shard struct {
	Index      int      `json:"index"`
	Size       int64    `json:"size"`
	Hash       string   `json:"hash"`
	Challenges [][]byte `json:"challenges"`
	Tree       []byte   `json:"tree"`
}

// Frame is the bridge-side mutable staging collection a file's shards are
// added to before being promoted to a file entry.
type Frame struct {
	ID     string  `json:"id"`
	Shards []Shard `json:"shards"`
}

// Pointer is a bridge-issued, read-only capability to read or write one
// shard at one farmer, valid for the scope of a single transfer.
type Pointer struct {
	Index  int    `json:"index"`
	Size   int64  `json:"size"`
	Hash   string `json:"hash"`
	Token  string `json:"token"`
	Farmer Farmer `json:"farmer"`
}

// Bucket is a handle to a bridge-managed namespace.
type Bucket struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FileEntry is a bucket-scoped record referencing a completed staging
// frame.
type FileEntry struct {
	ID       string `json:"id"`
	Frame    string `json:"frame"`
	Mimetype string `json:"mimetype"`
	Filename string `json:"filename"`
}

// Token is a short-lived capability scoped to a bucket and an operation.
type Token struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// MaxTransferRetries is the number of same-farmer retries (§4.5) before a
// shard's transfer is reassigned to a different farmer.
const MaxTransferRetries = 3

// TransferState is the in-flight, per-shard upload bookkeeping owned
// exclusively by the shard's own task.
type TransferState struct {
	Frame           string
	TmpName         string
	Size            int64
	Index           int
	ExcludeFarmers  map[string]struct{}
	TransferRetries int
}

// NewTransferState returns a zeroed TransferState for shard index with the
// given staging frame and temp file name.
func NewTransferState(frame, tmpName string, index int) *TransferState {
	return &TransferState{
		Frame:          frame,
		TmpName:        tmpName,
		Index:          index,
		ExcludeFarmers: make(map[string]struct{}),
	}
}

// Exclude adds nodeID to the set of farmers excluded for this shard.
func (ts *TransferState) Exclude(nodeID string) {
	ts.ExcludeFarmers[nodeID] = struct{}{}
}

// ExcludeList returns the excluded nodeIDs as a slice, stable order not
// guaranteed; callers that need a deterministic wire format should sort it.
func (ts *TransferState) ExcludeList() []string {
	list := make([]string, 0, len(ts.ExcludeFarmers))
	for id := range ts.ExcludeFarmers {
		list = append(list, id)
	}
	return list
}
