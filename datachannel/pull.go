package datachannel

import (
	"context"
	"encoding/json"
	"io"
)

// CreateReadStream opens a PULL data channel for the shard identified by
// hash, returning a reader that ends when the farmer sends the terminal
// close frame.
func (c *Client) CreateReadStream(ctx context.Context, token, hash string) (io.ReadCloser, error) {
	stream, err := c.openStream(ctx, handshake{Token: token, Hash: hash, Operation: "PULL"})
	if err != nil {
		return nil, err
	}
	limited := c.rl.NewReader(stream)
	return &pullStream{Reader: &frameReader{r: limited}, closer: stream}, nil
}

type pullStream struct {
	io.Reader
	closer io.Closer
}

func (p *pullStream) Close() error {
	return p.closer.Close()
}

// readJSON decodes a single JSON value from r (used for the ack frame on
// PUSH completion). The decoder may buffer bytes past the value, so any
// such bytes are lost to later reads of r.
func readJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}
