// Package upload implements the client-side upload pipeline:
// stat the source file, pick a shard size, demux it into shard substreams,
// and drive each shard through hash/audit-tree construction, staging-frame
// negotiation and a data-channel push, retrying and reassigning farmers as
// shards fail, before promoting the completed frame to a file entry.
//
// Directly adapted from acejam-Sia/modules/renter/uploadstreamer.go: the
// demux/heap-push shape survives as demux.Demux plus retryutil.Queue, and
// the per-shard retry bookkeeping survives as model.TransferState plus the
// Outcome state machine in transfer.go.
package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gitlab.com/NebulousLabs/errors"
	"github.com/shardbridge/core/bridge"
	"github.com/shardbridge/core/datachannel"
	"github.com/shardbridge/core/demux"
	"github.com/shardbridge/core/model"
	"github.com/shardbridge/core/retryutil"
)

// maxAddShardTries bounds the staging-frame negotiation retry: the default
// retry budget plus the initial attempt.
const maxAddShardTries = bridge.DefaultRetries + 1

// Progress reports one completed or failed shard as the upload proceeds.
// Index is informational only; callers must not assume ordered delivery.
type Progress struct {
	Index int
	Size  int64
	Err   error
}

// Options configures StoreFileInBucket.
type Options struct {
	// Mimetype and Filename describe the resulting file entry.
	Mimetype string
	Filename string
	// Concurrency bounds how many shards transfer at once. A
	// value <= 0 selects 1.
	Concurrency int
	// MaxShardsPerFile overrides DefaultMaxShardsPerFile (<=0 to use the
	// default).
	MaxShardsPerFile int
	// TempDir is where in-flight shard bytes are staged; defaults to
	// os.TempDir() when empty.
	TempDir string
	// Progress, if non-nil, receives one notification per shard.
	Progress func(Progress)
}

// StoreFileInBucket uploads the file at filePath into bucketID, returning
// the resulting file entry once every shard has been placed and
// acknowledged. token is the bucket's PUSH capability (spec §3 Token),
// threaded into every staging-frame negotiation and the final file-entry
// creation. It aborts and returns the first fatal error any
// shard's transfer encounters: an upload either finishes completely or
// fails, it does not return a partially placed frame.
func StoreFileInBucket(ctx context.Context, client *bridge.Client, mux datachannel.StreamOpener, bucketID, token, filePath string, opts Options) (*model.FileEntry, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, errors.AddContext(err, "upload: unable to stat source file")
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.AddContext(err, "upload: unable to open source file")
	}
	defer f.Close()

	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	shardSize := ShardSize(info.Size(), opts.MaxShardsPerFile)

	frame, err := client.CreateFrame()
	if err != nil {
		return nil, errors.AddContext(err, "upload: unable to create staging frame")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := retryutil.NewQueue(ctx, concurrency)
	events := demux.Demux(ctx, f, shardSize)

	var (
		mu       sync.Mutex
		firstErr error
	)
	report := func(p Progress) {
		if opts.Progress != nil {
			opts.Progress(p)
		}
	}
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		queue.Abort()
		cancel()
	}

	for event := range events {
		if event.Err != nil {
			fail(event.Err)
			break
		}
		if event.Finished {
			break
		}
		stream := event.Stream
		index := event.Index
		queue.Go(func(taskCtx context.Context) error {
			size, err := transferShard(taskCtx, client, mux, frame.ID, token, tempDir, index, stream)
			if err != nil {
				report(Progress{Index: index, Err: err})
				fail(err)
				return err
			}
			report(Progress{Index: index, Size: size})
			return nil
		})
	}

	_ = queue.Wait()

	mu.Lock()
	err = firstErr
	mu.Unlock()
	if err != nil {
		return nil, errors.AddContext(err, "upload: aborted")
	}

	entry, err := client.CreateFileEntry(bucketID, frame.ID, token, opts.Mimetype, opts.Filename)
	if err != nil {
		return nil, errors.AddContext(err, "upload: unable to create file entry")
	}
	return entry, nil
}

// transferShard drains one shard substream to a temp file, negotiates its
// placement with the bridge (retrying on retryable failures), and pushes
// it over a data channel, retrying the same farmer up to
// model.MaxTransferRetries times and then reassigning to a different
// farmer until maxExcludedFarmers are excluded, repeating as needed per the
// Finished/RetrySame/RetryOther/Fatal transitions in transfer.go (spec
// §4.5 step 4, §9). It returns the shard's size on success.
func transferShard(ctx context.Context, client *bridge.Client, mux datachannel.StreamOpener, frameID, token, tempDir string, index int, stream io.ReadCloser) (int64, error) {
	// The shard stream is only needed to drain bytes into the temp file;
	// closing it here (rather than once the whole task, including bridge
	// negotiation and data-channel push, returns) is what lets the demuxer
	// advance to shard N+1 while this shard's transfer is still in flight
	// (spec §4.5 step 4 / §5 concurrency C).
	shard, tmpPath, err := drainShard(tempDir, index, stream)
	stream.Close()
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmpPath)

	state := model.NewTransferState(frameID, filepath.Base(tmpPath), index)
	state.Size = shard.Size

	var farmer *model.Farmer
	for {
		if farmer == nil {
			addErr := retryutil.Do(ctx, maxAddShardTries, func() error {
				var err error
				farmer, err = client.AddShardToFileStagingFrame(frameID, token, shard, state.ExcludeList())
				return err
			})
			if addErr != nil {
				return 0, errors.AddContext(addErr, "upload: unable to negotiate shard placement")
			}
		}

		pushErr := pushToFarmer(ctx, mux, *farmer, shard, tmpPath)
		if pushErr == nil {
			return shard.Size, nil
		}

		switch nextOutcome(state.TransferRetries) {
		case RetrySame:
			// Same farmer, same contract: just reopen the channel and
			// restart the push from the temp file, no bridge call.
			state.TransferRetries++
			continue
		case RetryOther:
			if len(state.ExcludeFarmers) >= maxExcludedFarmers {
				return 0, errors.AddContext(pushErr, "upload: shard transfer failed permanently")
			}
			state.Exclude(farmer.Contact.NodeID)
			state.TransferRetries = 0
			farmer = nil // force renegotiation with a different farmer
			continue
		}
	}
}

// maxExcludedFarmers bounds how many farmers a single shard may exclude
// before its transfer is declared fatal. This is an Open Question
// decision, recorded in DESIGN.md: the pack carries no discovered constant
// for "how many farmers can a bridge offer for one shard," so the bound
// is set generously relative to model.MaxTransferRetries.
const maxExcludedFarmers = 10

// pushToFarmer opens a data channel to farmer and pushes the shard bytes
// from tmpPath.
func pushToFarmer(ctx context.Context, mux datachannel.StreamOpener, farmer model.Farmer, shard model.Shard, tmpPath string) error {
	dc, err := datachannel.New(ctx, mux, farmer.Contact)
	if err != nil {
		return err
	}
	defer dc.Close()

	w, err := dc.CreateWriteStream(ctx, farmer.Token, shard.Hash)
	if err != nil {
		return err
	}

	src, err := os.Open(tmpPath)
	if err != nil {
		return err
	}
	defer src.Close()

	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}
