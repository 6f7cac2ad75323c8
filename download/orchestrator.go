// Package download implements the client-side download pipeline (spec
// §4.6): redeem a PULL token, resolve the file's shard pointers page by
// page, pull each shard over its own data channel — re-resolving a fresh
// pointer and farmer if the assigned one fails — and deliver the shards as
// one ordered byte stream via mux.Muxer.
//
// There is no direct teacher equivalent for ordered reassembly (Sia
// reconstructs erasure-coded chunks rather than muxing whole shard
// streams); the worker-queue and retry shape are grounded on the same
// acejam-Sia patterns the upload package adapts, reused here for the pull
// side.
package download

import (
	"context"
	"io"

	"gitlab.com/NebulousLabs/errors"

	"github.com/shardbridge/core/bridge"
	"github.com/shardbridge/core/datachannel"
	"github.com/shardbridge/core/model"
	"github.com/shardbridge/core/mux"
	"github.com/shardbridge/core/retryutil"
)

// maxPullTries bounds how many times a single shard's data channel is
// retried against its currently-assigned farmer before that slice is
// re-resolved onto a different one.
const maxPullTries = 3

// maxSliceReResolutions bounds how many times a single shard may be
// re-resolved onto a different farmer before its pull is declared fatal.
// This is an Open Question decision (DESIGN.md), mirroring upload's
// maxExcludedFarmers: the pack carries no discovered constant for "how many
// farmers can a bridge offer to replace one failing shard."
const maxSliceReResolutions = 10

// Options configures CreateFileStream.
type Options struct {
	// Concurrency bounds how many shards are pulled at once. A
	// value <= 0 selects 1.
	Concurrency int
	// Exclude lists farmer nodeIDs the bridge should not resolve pointers
	// to (e.g. known-bad farmers from a previous attempt).
	Exclude []string
}

// CreateFileStream redeems token against fileID in bucketID and returns a
// reader that yields the file's bytes in order. Per spec §4.6 steps 3-5,
// only the first pointer page is resolved before this call returns; later
// pages are fetched in the background as the muxer drains, and if a later
// page's resolution fails, the error surfaces on the returned reader only
// once it is reached — bytes already delivered from earlier pages are
// never discarded.
func CreateFileStream(ctx context.Context, client *bridge.Client, siaMux datachannel.StreamOpener, bucketID, fileID, token string, opts Options) (io.ReadCloser, error) {
	firstPage, more, err := pointerPage(client, bucketID, fileID, token, 0, opts.Exclude)
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	m := mux.NewOpenEnded()
	queue := retryutil.NewQueue(ctx, concurrency)

	enqueuePage := func(page []model.Pointer) {
		var pageLen int64
		for _, p := range page {
			pageLen += p.Size
		}
		m.Grow(len(page), pageLen)
		for _, p := range page {
			p := p
			queue.Go(func(taskCtx context.Context) error {
				r, err := pullShard(taskCtx, client, siaMux, bucketID, fileID, token, opts.Exclude, p)
				if err != nil {
					m.Abort(errors.AddContext(err, "download: shard pull failed"))
					return err
				}
				m.Push(mux.Input{Index: p.Index, Source: r, Size: p.Size})
				return nil
			})
		}
	}

	enqueuePage(firstPage)
	skip := len(firstPage)

	go func() {
		failed := false
		for more {
			page, hasMore, err := pointerPage(client, bucketID, fileID, token, skip, opts.Exclude)
			if err != nil {
				m.FailPending(errors.AddContext(err, "download: unable to resolve a later pointer page"))
				failed = true
				break
			}
			enqueuePage(page)
			skip += len(page)
			more = hasMore
		}
		if !failed {
			m.Done()
		}
		_ = queue.Wait()
		cancel()
	}()

	return &fileStream{r: m.Output(), cancel: cancel}, nil
}

// pullShard opens a data channel to p's farmer and returns its shard's read
// stream, retrying against the same farmer up to maxPullTries times. If
// every same-farmer attempt fails, it re-resolves the shard's slice through
// the bridge, excluding the failed farmer, to get a fresh pointer and
// farmer, repeating up to maxSliceReResolutions times before giving up
// (spec §4.6 step 4's download-side counterpart of upload.transferShard's
// RetryOther farmer reassignment).
func pullShard(ctx context.Context, client *bridge.Client, siaMux datachannel.StreamOpener, bucketID, fileID, token string, exclude []string, p model.Pointer) (io.ReadCloser, error) {
	excluded := append([]string(nil), exclude...)
	for attempt := 0; ; attempt++ {
		stream, err := pullFromFarmer(ctx, siaMux, p)
		if err == nil {
			return stream, nil
		}
		if attempt >= maxSliceReResolutions {
			return nil, errors.AddContext(err, "download: shard re-resolution exhausted")
		}

		excluded = append(excluded, p.Farmer.Contact.NodeID)
		fresh, rerr := resolveSlice(client, bucketID, fileID, token, p.Index, excluded)
		if rerr != nil {
			return nil, errors.AddContext(rerr, "download: unable to re-resolve shard slice")
		}
		p = fresh
	}
}

// pullFromFarmer opens a data channel to p's farmer and creates the shard's
// read stream, retrying against that same farmer up to maxPullTries times.
func pullFromFarmer(ctx context.Context, siaMux datachannel.StreamOpener, p model.Pointer) (io.ReadCloser, error) {
	var stream io.ReadCloser
	err := retryutil.Do(ctx, maxPullTries, func() error {
		dc, err := datachannel.New(ctx, siaMux, p.Farmer.Contact)
		if err != nil {
			return err
		}
		s, err := dc.CreateReadStream(ctx, p.Token, p.Hash)
		if err != nil {
			dc.Close()
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(err, "download: unable to open shard channel")
	}
	return stream, nil
}

// resolveSlice re-fetches the single pointer at index from the bridge,
// excluding the given farmer nodeIDs, for use when the previously-assigned
// farmer's stream has failed.
func resolveSlice(client *bridge.Client, bucketID, fileID, token string, index int, exclude []string) (model.Pointer, error) {
	page, _, err := pointerPage(client, bucketID, fileID, token, index, exclude)
	if err != nil {
		return model.Pointer{}, err
	}
	if len(page) == 0 {
		return model.Pointer{}, errors.New("download: bridge returned no replacement pointer for shard")
	}
	return page[0], nil
}

// fileStream adapts the muxer's output reader to io.ReadCloser, canceling
// the pull queue's context when the caller is done with the stream.
type fileStream struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (fs *fileStream) Read(p []byte) (int, error) {
	return fs.r.Read(p)
}

func (fs *fileStream) Close() error {
	fs.cancel()
	return nil
}
