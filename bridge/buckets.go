package bridge

import (
	"github.com/shardbridge/core/model"
)

// CreateBucket creates a bucket namespace and returns its handle.
func (c *Client) CreateBucket(name string) (*model.Bucket, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var bucket model.Bucket
	if err := c.request(ctx, "POST", "/buckets", map[string]string{"name": name}, &bucket); err != nil {
		return nil, err
	}
	return &bucket, nil
}

// Bucket fetches a single bucket by ID.
func (c *Client) Bucket(id string) (*model.Bucket, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var bucket model.Bucket
	if err := c.request(ctx, "GET", fmtPath("/buckets/%s", id), nil, &bucket); err != nil {
		return nil, err
	}
	return &bucket, nil
}

// Buckets lists every bucket owned by the authenticated account.
func (c *Client) Buckets() ([]model.Bucket, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var buckets []model.Bucket
	if err := c.request(ctx, "GET", "/buckets", nil, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

// UpdateBucket renames a bucket.
func (c *Client) UpdateBucket(id, name string) (*model.Bucket, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var bucket model.Bucket
	if err := c.request(ctx, "PATCH", fmtPath("/buckets/%s", id), map[string]string{"name": name}, &bucket); err != nil {
		return nil, err
	}
	return &bucket, nil
}

// DeleteBucket removes a bucket.
func (c *Client) DeleteBucket(id string) error {
	ctx, cancel := c.requestCtx()
	defer cancel()
	return c.request(ctx, "DELETE", fmtPath("/buckets/%s", id), nil, nil)
}

// Files lists the file entries in a bucket.
func (c *Client) Files(bucketID string) ([]model.FileEntry, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var files []model.FileEntry
	if err := c.request(ctx, "GET", fmtPath("/buckets/%s/files", bucketID), nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// DeleteFile removes a file entry from a bucket.
func (c *Client) DeleteFile(bucketID, fileID string) error {
	ctx, cancel := c.requestCtx()
	defer cancel()
	return c.request(ctx, "DELETE", fmtPath("/buckets/%s/files/%s", bucketID, fileID), nil, nil)
}

// ReplicateFile requests the bridge mirror a file to additional farmers.
func (c *Client) ReplicateFile(bucketID, fileID string, redundancy int) error {
	ctx, cancel := c.requestCtx()
	defer cancel()
	payload := map[string]string{
		"file":       fileID,
		"redundancy": fmtPath("%d", redundancy),
	}
	return c.request(ctx, "POST", fmtPath("/buckets/%s/mirrors", bucketID), payload, nil)
}
