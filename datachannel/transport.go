package datachannel

import (
	"io"

	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/log"
	"gitlab.com/NebulousLabs/siamux"
)

// siaMuxTransport adapts a *siamux.Mux to StreamOpener's simpler
// address/nodeID shape, isolating the data channel's only dependency on
// siamux's real construction/dial signature to this one file (mirroring
// tunnel.Client.tryUPnP's containment of an uncertain third-party API).
type siaMuxTransport struct {
	mux *siamux.Mux
}

// NewSiaMuxTransport starts the process's shared siamux listener and
// returns a StreamOpener backed by it. tcpAddress/udpAddress are the
// local listen addresses siamux multiplexes RPC and data-channel streams
// over; persistDir is where siamux keeps its own connection state.
func NewSiaMuxTransport(tcpAddress, udpAddress, persistDir string, logger *log.Logger) (StreamOpener, error) {
	mux, err := siamux.New(tcpAddress, udpAddress, logger, persistDir)
	if err != nil {
		return nil, errors.AddContext(err, "datachannel: unable to start siamux transport")
	}
	return &siaMuxTransport{mux: mux}, nil
}

// NewStream implements StreamOpener over the underlying siamux
// connection to nodeID at address.
func (t *siaMuxTransport) NewStream(address, nodeID string) (io.ReadWriteCloser, error) {
	stream, err := t.mux.NewStream(nodeID, address)
	if err != nil {
		return nil, errors.AddContext(err, "datachannel: siamux dial failed")
	}
	return stream, nil
}

// Close tears down the underlying siamux listener.
func (t *siaMuxTransport) Close() error {
	return t.mux.Close()
}
