package bridge

import (
	"github.com/shardbridge/core/model"
)

// CreateToken requests a short-lived PUSH or PULL capability scoped to a
// bucket.
func (c *Client) CreateToken(bucketID string, operation model.Operation) (*model.Token, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var token model.Token
	payload := map[string]string{"operation": string(operation)}
	if err := c.request(ctx, "POST", fmtPath("/buckets/%s/tokens", bucketID), payload, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Pointers fetches one page of pointers for fileID, starting at skip and
// bounded to limit entries, excluding the given farmer nodeIDs.
func (c *Client) Pointers(bucketID, fileID, token string, skip, limit int, exclude []string) ([]model.Pointer, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	payload := map[string]string{
		"token":   token,
		"skip":    fmtPath("%d", skip),
		"limit":   fmtPath("%d", limit),
		"exclude": joinExclude(exclude),
	}
	var page []model.Pointer
	if err := c.request(ctx, "GET", fmtPath("/buckets/%s/files/%s", bucketID, fileID), payload, &page); err != nil {
		return nil, err
	}
	return page, nil
}
