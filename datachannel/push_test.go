package datachannel

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/shardbridge/core/internal/testutil"
	"github.com/shardbridge/core/model"
)

// readAllFrames decodes frames from r until the terminal (zero-length)
// frame, returning the concatenated payload.
func readAllFrames(r io.Reader) []byte {
	var out []byte
	for {
		frame, err := readFrame(r)
		if err != nil {
			return out
		}
		out = append(out, frame...)
	}
}

func TestPushStreamSucceedsWithAck(t *testing.T) {
	var gotHandshake map[string]string
	var gotBody []byte
	farmer := &testutil.FakeFarmer{
		Handle: func(handshake map[string]string, conn net.Conn) {
			gotHandshake = handshake
			gotBody = readAllFrames(conn)
			testutil.AckSuccess(conn) //nolint:errcheck
		},
	}

	client, err := New(context.Background(), farmer, model.Contact{Address: "127.0.0.1", NodeID: "n1"})
	if err != nil {
		t.Fatal(err)
	}
	w, err := client.CreateWriteStream(context.Background(), "tok", "hash1")
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("shard bytes")
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("expected Close to succeed on a positive ack, got %v", err)
	}

	if gotHandshake["operation"] != "PUSH" {
		t.Errorf("expected PUSH operation, got %q", gotHandshake["operation"])
	}
	if gotHandshake["token"] != "tok" || gotHandshake["hash"] != "hash1" {
		t.Errorf("unexpected handshake: %+v", gotHandshake)
	}
	if string(gotBody) != string(payload) {
		t.Errorf("farmer received %q, want %q", gotBody, payload)
	}
}

func TestPushStreamFailsOnRejection(t *testing.T) {
	farmer := &testutil.FakeFarmer{
		Handle: func(handshake map[string]string, conn net.Conn) {
			readAllFrames(conn)
			testutil.AckFailure(conn, "checksum mismatch") //nolint:errcheck
		},
	}

	client, err := New(context.Background(), farmer, model.Contact{Address: "127.0.0.1", NodeID: "n1"})
	if err != nil {
		t.Fatal(err)
	}
	w, err := client.CreateWriteStream(context.Background(), "tok", "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err == nil {
		t.Fatal("expected Close to report the farmer's rejection")
	}
}

func TestNewRejectsIncompleteContact(t *testing.T) {
	farmer := &testutil.FakeFarmer{}
	if _, err := New(context.Background(), farmer, model.Contact{}); err == nil {
		t.Fatal("expected New to reject a contact missing address/nodeID")
	}
}
