package datachannel

import (
	"context"
	"io"

	"gitlab.com/NebulousLabs/errors"
)

// CreateWriteStream opens a PUSH data channel for the shard identified by
// hash, returning a writer that completes the transfer when closed and
// the farmer has acknowledged receipt.
func (c *Client) CreateWriteStream(ctx context.Context, token, hash string) (io.WriteCloser, error) {
	stream, err := c.openStream(ctx, handshake{Token: token, Hash: hash, Operation: "PUSH"})
	if err != nil {
		return nil, err
	}
	limited := c.rl.NewWriter(stream)
	return &pushStream{w: limited, stream: stream}, nil
}

// pushStream frames every Write into one length-prefixed wire frame over
// the rate-limited writer and, on Close, sends the terminal zero-length
// frame and waits for the farmer's acknowledgement before reporting
// success.
type pushStream struct {
	w      io.Writer
	stream io.ReadWriteCloser
}

func (p *pushStream) Write(b []byte) (int, error) {
	if err := writeFrame(p.w, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *pushStream) Close() error {
	defer p.stream.Close()
	if err := writeFrame(p.w, nil); err != nil {
		return errors.AddContext(err, "datachannel: push: unable to send terminal frame")
	}
	var ack ackFrame
	if err := readJSON(p.stream, &ack); err != nil {
		return errors.AddContext(err, "datachannel: push: unable to read acknowledgement")
	}
	if !ack.OK {
		return errors.New("datachannel: push: farmer rejected shard: " + ack.Error)
	}
	return nil
}
