package testutil

import (
	"encoding/json"
	"io"
	"net"
	"sync"
)

// FakeFarmer is an in-memory stand-in for a farmer's side of a data
// channel, satisfying datachannel.StreamOpener so push/pull
// logic can be tested without a real siamux transport. Each call to
// NewStream spins up a goroutine running Handle against one end of an
// in-process net.Pipe, handing the other end back to the caller.
type FakeFarmer struct {
	// Handle processes one opened stream: it receives the JSON handshake
	// already decoded, and owns conn for the rest of the exchange;
	// NewStream closes conn once Handle returns.
	Handle func(handshake map[string]string, conn net.Conn)

	mu      sync.Mutex
	streams int
}

// NewStream implements datachannel.StreamOpener.
func (f *FakeFarmer) NewStream(address, nodeID string) (io.ReadWriteCloser, error) {
	client, server := net.Pipe()
	f.mu.Lock()
	f.streams++
	f.mu.Unlock()

	go func() {
		defer server.Close()
		var handshake map[string]string
		if err := json.NewDecoder(server).Decode(&handshake); err != nil {
			return
		}
		f.Handle(handshake, server)
	}()

	return client, nil
}

// StreamsOpened reports how many streams NewStream has handed out so far.
func (f *FakeFarmer) StreamsOpened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams
}

// AckSuccess writes a successful PUSH acknowledgement frame to conn.
func AckSuccess(conn net.Conn) error {
	return json.NewEncoder(conn).Encode(map[string]interface{}{"ok": true})
}

// AckFailure writes a failed PUSH acknowledgement frame to conn.
func AckFailure(conn net.Conn, message string) error {
	return json.NewEncoder(conn).Encode(map[string]interface{}{"ok": false, "error": message})
}
