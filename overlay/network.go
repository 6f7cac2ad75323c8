// Package overlay defines the boundary between this module and the
// DHT/Kademlia routing library treated as an external collaborator:
// contact lookup, RPC dispatch, and pub/sub primitives are assumed to be
// provided, not implemented here. pubsub.go adapts that boundary onto a
// concrete library (go-libp2p-pubsub) for the one piece this module does
// drive directly: tunnel-discovery topic announcements.
package overlay

import (
	"context"

	"github.com/shardbridge/core/model"
)

// Handler processes one inbound RPC message from contact. reply, if
// invoked, sends a response envelope back to the sender; it is nil for
// fire-and-forget messages such as pub/sub deliveries.
type Handler func(message []byte, contact model.Contact, reply func([]byte) error)

// Network is the DHT/Kademlia routing surface this module consumes (spec
// §6): contact lookup and RPC dispatch are assumed to already exist in
// whatever overlay implementation a caller wires in; this module only
// sends, publishes, subscribes and receives through it.
type Network interface {
	// Send delivers rpc to contact and returns its response, or an error
	// if the contact could not be reached.
	Send(ctx context.Context, contact model.Contact, rpc []byte) ([]byte, error)
	// Publish broadcasts payload on topic to every subscriber.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe registers handler for every message published on topic,
	// until ctx is canceled.
	Subscribe(ctx context.Context, topic string, handler Handler) error
}
