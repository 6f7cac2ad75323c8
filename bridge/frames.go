package bridge

import (
	"encoding/hex"
	"strings"

	"github.com/shardbridge/core/model"
)

// CreateFrame creates a new staging frame.
func (c *Client) CreateFrame() (*model.Frame, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var frame model.Frame
	if err := c.request(ctx, "POST", "/frames", nil, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// Frames lists staging frames owned by the account.
func (c *Client) Frames() ([]model.Frame, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var frames []model.Frame
	if err := c.request(ctx, "GET", "/frames", nil, &frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// Frame fetches a single staging frame.
func (c *Client) Frame(id string) (*model.Frame, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var frame model.Frame
	if err := c.request(ctx, "GET", fmtPath("/frames/%s", id), nil, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// DeleteFrame removes a staging frame.
func (c *Client) DeleteFrame(id string) error {
	ctx, cancel := c.requestCtx()
	defer cancel()
	return c.request(ctx, "DELETE", fmtPath("/frames/%s", id), nil, nil)
}

// AddShardToFileStagingFrame posts a shard's descriptor to a staging frame,
// authorized by the bucket's PUSH token (spec §3 Token), and returns the
// contract/farmer assignment. Callers
// supply retries; AddShardToFileStagingFrame itself performs a single
// attempt — the retry-with-back-off policy lives in upload.transferShard,
// which wraps this call with retryutil.Do.
func (c *Client) AddShardToFileStagingFrame(frameID, token string, shard model.Shard, exclude []string) (*model.Farmer, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	payload := map[string]string{
		"token":      token,
		"index":      fmtPath("%d", shard.Index),
		"hash":       shard.Hash,
		"size":       fmtPath("%d", shard.Size),
		"tree":       hex.EncodeToString(shard.Tree),
		"challenges": encodeChallenges(shard.Challenges),
		"exclude":    joinExclude(exclude),
	}
	var farmer model.Farmer
	if err := c.request(ctx, "PUT", fmtPath("/frames/%s", frameID), payload, &farmer); err != nil {
		return nil, err
	}
	return &farmer, nil
}

func encodeChallenges(challenges [][]byte) string {
	parts := make([]string, len(challenges))
	for i, c := range challenges {
		parts[i] = hex.EncodeToString(c)
	}
	return strings.Join(parts, ",")
}

// CreateFileEntry promotes a completed staging frame to a bucket file
// entry, authorized by the same PUSH token used to negotiate the frame's
// shards.
func (c *Client) CreateFileEntry(bucketID, frameID, token, mimetype, filename string) (*model.FileEntry, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	payload := map[string]string{
		"token":    token,
		"frame":    frameID,
		"mimetype": mimetype,
		"filename": filename,
	}
	var entry model.FileEntry
	if err := c.request(ctx, "POST", fmtPath("/buckets/%s/files", bucketID), payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
