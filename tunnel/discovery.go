// Package tunnel implements the tunnel-discovery subprotocol that lets
// NAT-restricted nodes announce and locate traffic relays over a pub/sub
// topic scheme. Before falling back to the probe/tunnel handshake, a
// node first attempts automatic port-mapping via UPnP using
// gitlab.com/NebulousLabs/go-upnp for router-assisted reachability.
package tunnel

import (
	"context"
	"sync"
	"time"

	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/go-upnp"

	"github.com/shardbridge/core/model"
	"github.com/shardbridge/core/overlay"
)

// Topics used for tunnel-availability announcements.
const (
	TopicAvailable   = "0e00" // "tunnel available"
	TopicUnavailable = "0e01" // "tunnel unavailable"
)

// TunnelersCapacity bounds the tunnelers contact set.
const TunnelersCapacity = 20

// upnpDiscoveryTimeout bounds how long automatic port-mapping discovery
// is allowed to take before falling back to the probe/tunnel handshake.
const upnpDiscoveryTimeout = 5 * time.Second

// ErrNoNeighbor is returned by EnsureReachable when no neighbor can be
// found to query for tunnels: the tunnelers set and seeds are empty and
// the ContactSource (if any) yields no contact.
var ErrNoNeighbor = errors.New("Could not find a neighbor to query for tunnels")

// ErrNoProbeNeighbor is returned by EstablishTunnel when the seed list is
// empty during setup.
var ErrNoProbeNeighbor = errors.New("Could not find a neighbor to query for probe")

// Tunnelers is the bounded, concurrency-safe set of known tunnel-capable
// contacts every node maintains by subscribing to both topics.
type Tunnelers struct {
	mu       sync.Mutex
	capacity int
	byNodeID map[string]model.Contact
}

// NewTunnelers returns an empty set bounded to TunnelersCapacity.
func NewTunnelers() *Tunnelers {
	return &Tunnelers{capacity: TunnelersCapacity, byNodeID: make(map[string]model.Contact)}
}

// Add inserts contact if there is room, reporting whether it was added.
func (t *Tunnelers) Add(contact model.Contact) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byNodeID[contact.NodeID]; exists {
		return true
	}
	if len(t.byNodeID) >= t.capacity {
		return false
	}
	t.byNodeID[contact.NodeID] = contact
	return true
}

// Remove drops contact from the set.
func (t *Tunnelers) Remove(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byNodeID, nodeID)
}

// Any returns an arbitrary known tunneler, or false if the set is empty.
func (t *Tunnelers) Any() (model.Contact, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.byNodeID {
		return c, true
	}
	return model.Contact{}, false
}

// Len reports how many tunnelers are currently known.
func (t *Tunnelers) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byNodeID)
}

// Subscribe joins both tunnel-discovery topics on net, updating tunnelers
// as announcements arrive.
func Subscribe(ctx context.Context, net overlay.Network, tunnelers *Tunnelers) error {
	if err := net.Subscribe(ctx, TopicAvailable, func(_ []byte, contact model.Contact, _ func([]byte) error) {
		tunnelers.Add(contact)
	}); err != nil {
		return errors.AddContext(err, "tunnel: unable to subscribe to availability topic")
	}
	if err := net.Subscribe(ctx, TopicUnavailable, func(_ []byte, contact model.Contact, _ func([]byte) error) {
		tunnelers.Remove(contact.NodeID)
	}); err != nil {
		return errors.AddContext(err, "tunnel: unable to subscribe to unavailability topic")
	}
	return nil
}

// Server runs the tunnel-server side for a node configured with spare
// tunnel capacity.
type Server struct {
	net      overlay.Network
	capacity int

	mu   sync.Mutex
	used int
}

// NewServer returns a tunnel server offering capacity concurrent tunnels.
func NewServer(net overlay.Network, capacity int) *Server {
	return &Server{net: net, capacity: capacity}
}

// Lock reserves one tunnel slot, publishing 0e01 once capacity is
// exhausted.
func (s *Server) Lock(ctx context.Context) error {
	s.mu.Lock()
	s.used++
	locked := s.used >= s.capacity
	s.mu.Unlock()
	if locked {
		return s.net.Publish(ctx, TopicUnavailable, nil)
	}
	return nil
}

// Unlock releases one tunnel slot, publishing 0e00 if hasTunnelAvailable,
// else 0e01.
func (s *Server) Unlock(ctx context.Context, hasTunnelAvailable bool) error {
	s.mu.Lock()
	if s.used > 0 {
		s.used--
	}
	s.mu.Unlock()
	if hasTunnelAvailable {
		return s.net.Publish(ctx, TopicAvailable, nil)
	}
	return s.net.Publish(ctx, TopicUnavailable, nil)
}

// ContactSource supplements EnsureReachable's neighbor fallback with a
// wider contact listing (e.g. a bridge.Client) when both the local
// tunnelers set and the seed list are empty.
type ContactSource interface {
	Contacts() ([]model.Contact, error)
}

// Client drives the tunnel-client setup state machine for a
// NAT-restricted node.
type Client struct {
	net       overlay.Network
	tunnelers *Tunnelers
	contacts  ContactSource
}

// NewClient returns a tunnel client using net for probe/tunnel RPCs and
// tunnelers as its source of candidate tunnel contacts.
func NewClient(net overlay.Network, tunnelers *Tunnelers) *Client {
	return &Client{net: net, tunnelers: tunnelers}
}

// WithContactSource attaches src as the last-resort neighbor fallback in
// EnsureReachable, used when both the local tunnelers set and the seed
// list are empty (spec §4.8 step 2).
func (c *Client) WithContactSource(src ContactSource) *Client {
	c.contacts = src
	return c
}

// EnsureReachable attempts automatic UPnP port mapping first; only on
// failure does it fall back to the probe/tunnel handshake (RequestProbe →
// FindTunnel → EstablishTunnel), trying the router before asking a peer
// for NAT traversal.
func (c *Client) EnsureReachable(ctx context.Context, port uint16, seeds []model.Contact) error {
	if err := c.tryUPnP(ctx, port); err == nil {
		return nil
	}

	reachable, err := c.RequestProbe(ctx, seeds)
	if err != nil {
		return err
	}
	if reachable {
		return nil
	}

	neighbor, err := c.neighborFallback(seeds)
	if err != nil {
		return err
	}
	contact, err := c.FindTunnel(ctx, neighbor)
	if err != nil {
		return err
	}
	return c.EstablishTunnel(ctx, contact, seeds)
}

// neighborFallback picks which neighbor to query for a tunnel once
// RequestProbe has confirmed this node is not reachable on its own: a known
// tunneler first, then a seed, then the attached ContactSource (if any),
// in that order.
func (c *Client) neighborFallback(seeds []model.Contact) (model.Contact, error) {
	if neighbor, ok := c.tunnelers.Any(); ok {
		return neighbor, nil
	}
	if len(seeds) > 0 {
		return seeds[0], nil
	}
	if c.contacts != nil {
		found, err := c.contacts.Contacts()
		if err == nil && len(found) > 0 {
			return found[0], nil
		}
	}
	return model.Contact{}, ErrNoNeighbor
}

func (c *Client) tryUPnP(ctx context.Context, port uint16) error {
	discoverCtx, cancel := context.WithTimeout(ctx, upnpDiscoveryTimeout)
	defer cancel()
	igd, err := upnp.Discover(discoverCtx)
	if err != nil {
		return errors.AddContext(err, "tunnel: upnp discovery failed")
	}
	return igd.Forward(port, "shardbridge")
}

// probeRequest is the PROBE RPC body.
type probeRequest struct {
	Port uint16 `json:"port"`
}

// RequestProbe sends a PROBE RPC to each seed in turn, reporting whether
// any seed confirmed this node is externally reachable.
func (c *Client) RequestProbe(ctx context.Context, seeds []model.Contact) (bool, error) {
	if len(seeds) == 0 {
		return false, ErrNoProbeNeighbor
	}
	for _, seed := range seeds {
		resp, err := c.net.Send(ctx, seed, []byte(`{"method":"PROBE"}`))
		if err != nil {
			continue
		}
		if len(resp) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// FindTunnel asks neighbor for a tunneler contact.
func (c *Client) FindTunnel(ctx context.Context, neighbor model.Contact) (model.Contact, error) {
	resp, err := c.net.Send(ctx, neighbor, []byte(`{"method":"FIND_TUNNEL"}`))
	if err != nil {
		return model.Contact{}, errors.AddContext(err, "tunnel: FIND_TUNNEL failed")
	}
	return model.Contact{NodeID: string(resp)}, nil
}

// EstablishTunnel opens a tunnel connection to contact, failing if seeds
// is empty, then subscribes to tunneler announcements on success.
func (c *Client) EstablishTunnel(ctx context.Context, contact model.Contact, seeds []model.Contact) error {
	if len(seeds) == 0 {
		return ErrNoProbeNeighbor
	}
	if _, err := c.net.Send(ctx, contact, []byte(`{"method":"ESTABLISH_TUNNEL"}`)); err != nil {
		return errors.AddContext(err, "tunnel: ESTABLISH_TUNNEL failed")
	}
	return Subscribe(ctx, c.net, c.tunnelers)
}
