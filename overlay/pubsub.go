package overlay

import (
	"context"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/threadgroup"

	"github.com/shardbridge/core/model"
)

// PubSubNetwork adapts github.com/libp2p/go-libp2p-pubsub's gossipsub
// topics onto the Network interface's Publish/Subscribe surface. Send is
// intentionally not backed by pubsub (pub/sub has no addressed
// request/response semantics); a deployment wiring PubSubNetwork as its
// Network should pair it with a direct libp2p stream-based RPC transport
// for Send, which is outside this module's scope.
type PubSubNetwork struct {
	host host.Host
	ps   *pubsub.PubSub
	tg   threadgroup.ThreadGroup

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubNetwork wraps an already-constructed libp2p host and gossipsub
// router. Both are assumed to be supplied by the overlay library a
// deployment chooses; this package treats both as externally supplied.
func NewPubSubNetwork(h host.Host, ps *pubsub.PubSub) *PubSubNetwork {
	return &PubSubNetwork{host: h, ps: ps, topics: make(map[string]*pubsub.Topic)}
}

// Close stops every topic's subscription loop and blocks until each has
// exited, so a caller can tear down the underlying host without leaking
// goroutines mid-delivery.
func (n *PubSubNetwork) Close() error {
	return n.tg.Stop()
}

// Send is unimplemented: gossipsub has no addressed RPC concept. Callers
// needing request/response overlay RPC must supply a Network backed by the
// DHT/stream layer instead.
func (n *PubSubNetwork) Send(ctx context.Context, contact model.Contact, rpc []byte) ([]byte, error) {
	return nil, errors.New("overlay: PubSubNetwork does not implement addressed Send")
}

// Publish broadcasts payload on topic via gossipsub.
func (n *PubSubNetwork) Publish(ctx context.Context, topic string, payload []byte) error {
	t, err := n.topicFor(topic)
	if err != nil {
		return err
	}
	return t.Publish(ctx, payload)
}

// Subscribe joins topic and invokes handler for every message received
// until ctx is canceled.
func (n *PubSubNetwork) Subscribe(ctx context.Context, topic string, handler Handler) error {
	t, err := n.topicFor(topic)
	if err != nil {
		return err
	}
	sub, err := t.Subscribe()
	if err != nil {
		return errors.AddContext(err, "overlay: unable to subscribe")
	}
	if err := n.tg.Add(); err != nil {
		sub.Cancel()
		return errors.AddContext(err, "overlay: network is shutting down")
	}
	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer n.tg.Done()
		defer sub.Cancel()
		defer cancel()
		go func() {
			select {
			case <-n.tg.StopChan():
				cancel()
			case <-subCtx.Done():
			}
		}()
		for {
			msg, err := sub.Next(subCtx)
			if err != nil {
				return
			}
			if msg.ReceivedFrom == n.host.ID() {
				continue
			}
			handler(msg.Data, contactFromPeerID(msg.ReceivedFrom), nil)
		}
	}()
	return nil
}

func (n *PubSubNetwork) topicFor(topic string) (*pubsub.Topic, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.topics[topic]; ok {
		return t, nil
	}
	t, err := n.ps.Join(topic)
	if err != nil {
		return nil, errors.AddContext(err, "overlay: unable to join topic")
	}
	n.topics[topic] = t
	return t, nil
}

// contactFromPeerID builds a minimal Contact carrying only the libp2p
// peer ID, for handlers that only need to know who published a
// tunnel-discovery message rather than its full dialable address.
func contactFromPeerID(id peer.ID) model.Contact {
	return model.Contact{NodeID: id.String()}
}
