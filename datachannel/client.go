// Package datachannel implements the per-farmer data-channel client: a
// direct, framed connection to one farmer supporting push (write) or
// pull (read) of exactly one named shard. Transport is
// gitlab.com/NebulousLabs/siamux, a multiplexed per-host stream library;
// throughput/idle-timeout shaping uses gitlab.com/NebulousLabs/ratelimit.
package datachannel

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/ratelimit"

	"github.com/shardbridge/core/model"
)

// State is a data-channel connection's lifecycle stage.
type State int

// Connection lifecycle states.
const (
	StateConnecting State = iota
	StateOpen
	StateActive
	StateClosed
	StateErrored
)

// DefaultIdleTimeout is the data channel's idle timeout.
const DefaultIdleTimeout = 30 * time.Second

// handshake is the JSON message exchanged when a stream is opened, before
// any binary shard frames.
type handshake struct {
	Token     string `json:"token"`
	Hash      string `json:"hash"`
	Operation string `json:"operation"`
}

// ackFrame acknowledges a completed PUSH.
type ackFrame struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StreamOpener opens a transport-level stream to a contact, identified by
// its dialable address and nodeID. NewSiaMuxTransport adapts the real
// siamux transport to this shape; tests substitute an in-memory fake
// (internal/testutil.FakeFarmer) so the data channel's handshake/push/pull
// logic can run without a real network.
type StreamOpener interface {
	NewStream(address, nodeID string) (io.ReadWriteCloser, error)
}

// Client represents one outbound connection to a farmer, handling exactly
// one shard transfer for its lifetime.
type Client struct {
	mux     StreamOpener
	contact model.Contact

	state State
	rl    *ratelimit.RateLimit
}

// New opens a connection to farmer over mux, the shared transport for the
// process (normally one built by NewSiaMuxTransport). It only checks that
// the contact has an address and nodeID; no stream is opened and no
// handshake is sent until CreateWriteStream or CreateReadStream is called.
func New(ctx context.Context, mux StreamOpener, farmer model.Contact) (*Client, error) {
	c := &Client{
		mux:     mux,
		contact: farmer,
		state:   StateConnecting,
		rl:      ratelimit.NewRateLimit(0, 0, 0),
	}
	// siamux dials lazily on NewStream per shard; reaching StateOpen here
	// only confirms the contact is well-formed, deferring the real socket
	// open until there is actually something to send.
	if farmer.Address == "" || farmer.NodeID == "" {
		c.state = StateErrored
		return nil, errors.New("datachannel: farmer contact missing address or nodeID")
	}
	c.state = StateOpen
	return c, nil
}

// SetLimit configures the read/write byte-per-second ceiling applied to
// this channel's transfer (0 disables limiting).
func (c *Client) SetLimit(bytesPerSecond uint64) {
	c.rl.SetLimits(bytesPerSecond, bytesPerSecond, 0)
}

// Close tears down the channel.
func (c *Client) Close() error {
	c.state = StateClosed
	return nil
}

// openStream opens a siamux stream to the farmer and performs the JSON
// handshake.
func (c *Client) openStream(ctx context.Context, h handshake) (io.ReadWriteCloser, error) {
	stream, err := c.mux.NewStream(c.contact.Address, c.contact.NodeID)
	if err != nil {
		c.state = StateErrored
		return nil, errors.AddContext(err, "datachannel: unable to open stream")
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultIdleTimeout)
	}
	if sd, ok := stream.(interface{ SetDeadline(time.Time) error }); ok {
		if err := sd.SetDeadline(deadline); err != nil {
			stream.Close()
			return nil, errors.AddContext(err, "datachannel: unable to set deadline")
		}
	}
	enc := json.NewEncoder(stream)
	if err := enc.Encode(h); err != nil {
		stream.Close()
		c.state = StateErrored
		return nil, errors.AddContext(err, "datachannel: handshake failed")
	}
	c.state = StateActive
	return stream, nil
}
