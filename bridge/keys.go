package bridge

// keyRecord is a registered auth public key.
type keyRecord struct {
	Key string `json:"key"`
}

// ListKeys lists the account's registered auth public keys.
func (c *Client) ListKeys() ([]string, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var records []keyRecord
	if err := c.request(ctx, "GET", "/keys", nil, &records); err != nil {
		return nil, err
	}
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Key
	}
	return keys, nil
}

// AddKey registers a hex-encoded public key for account authentication.
func (c *Client) AddKey(hexPubKey string) error {
	ctx, cancel := c.requestCtx()
	defer cancel()
	return c.request(ctx, "POST", "/keys", map[string]string{"key": hexPubKey}, nil)
}

// RemoveKey deregisters a public key.
func (c *Client) RemoveKey(hexPubKey string) error {
	ctx, cancel := c.requestCtx()
	defer cancel()
	return c.request(ctx, "DELETE", fmtPath("/keys/%s", hexPubKey), nil, nil)
}
