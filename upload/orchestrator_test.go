package upload_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/shardbridge/core/bridge"
	"github.com/shardbridge/core/internal/testutil"
	"github.com/shardbridge/core/model"
	"github.com/shardbridge/core/upload"
)

// readFramedBody drains push frames from conn up to the terminal
// zero-length frame, mirroring the data channel's length-prefixed wire
// format without importing the unexported decoder.
func readFramedBody(conn net.Conn) []byte {
	var out []byte
	var lenBuf [4]byte
	for {
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			return out
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		if n == 0 {
			return out
		}
		frame := make([]byte, n)
		if _, err := io.ReadFull(conn, frame); err != nil {
			return out
		}
		out = append(out, frame...)
	}
}

func newTestClient(t *testing.T, fb *testutil.FakeBridge) *bridge.Client {
	t.Helper()
	client, err := bridge.New(bridge.Options{
		BaseURI: fb.URL(),
		Basic:   &bridge.BasicAuth{Email: "u@example.com", Pass: "x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

// TestStoreFileInBucketUploadsAllShards exercises the full upload happy
// path: each shard is negotiated via the bridge and
// pushed to a fake farmer that acks success, yielding a file entry.
func TestStoreFileInBucketUploadsAllShards(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.bin")
	payload := []byte("hello world, this is shard content that fits inside a single 2 MiB shard!!")
	if err := os.WriteFile(srcPath, payload, 0o600); err != nil {
		t.Fatal(err)
	}

	fb := testutil.NewFakeBridge()
	defer fb.Close()

	fb.HandleJSON(http.MethodPost, "/frames", http.StatusOK, model.Frame{ID: "frame-1"})

	var addShardCalls int
	fb.Handle(http.MethodPut, "/frames/frame-1", func(w http.ResponseWriter, r *http.Request) {
		addShardCalls++
		resp := model.Farmer{
			Contact: model.Contact{Address: "127.0.0.1", NodeID: "farmer-" + strconv.Itoa(addShardCalls)},
			Token:   "push-token",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	fb.HandleJSON(http.MethodPost, "/buckets/bucket-1/files", http.StatusOK, model.FileEntry{
		ID: "file-1", Frame: "frame-1", Mimetype: "application/octet-stream", Filename: "source.bin",
	})

	client := newTestClient(t, fb)

	farmer := &testutil.FakeFarmer{
		Handle: func(handshake map[string]string, conn net.Conn) {
			if handshake["operation"] != "PUSH" {
				return
			}
			readFramedBody(conn)
			testutil.AckSuccess(conn) //nolint:errcheck
		},
	}

	entry, err := upload.StoreFileInBucket(context.Background(), client, farmer, "bucket-1", "push-token", srcPath, upload.Options{
		Mimetype:         "application/octet-stream",
		Filename:         "source.bin",
		MaxShardsPerFile: 4,
		TempDir:          dir,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID != "file-1" {
		t.Fatalf("unexpected file entry: %+v", entry)
	}
	if addShardCalls == 0 {
		t.Fatal("expected at least one shard to be negotiated")
	}
}

// TestStoreFileInBucketFailsWhenFarmerRejects verifies a permanently
// rejecting farmer surfaces as an error rather than a partially placed
// frame.
func TestStoreFileInBucketFailsWhenFarmerRejects(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.bin")
	if err := os.WriteFile(srcPath, []byte("small file"), 0o600); err != nil {
		t.Fatal(err)
	}

	fb := testutil.NewFakeBridge()
	defer fb.Close()

	fb.HandleJSON(http.MethodPost, "/frames", http.StatusOK, model.Frame{ID: "frame-1"})
	var addShardCalls int
	fb.Handle(http.MethodPut, "/frames/frame-1", func(w http.ResponseWriter, r *http.Request) {
		addShardCalls++
		resp := model.Farmer{
			Contact: model.Contact{Address: "127.0.0.1", NodeID: "bad-farmer-" + strconv.Itoa(addShardCalls)},
			Token:   "push-token",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	client := newTestClient(t, fb)

	farmer := &testutil.FakeFarmer{
		Handle: func(handshake map[string]string, conn net.Conn) {
			readFramedBody(conn)
			testutil.AckFailure(conn, "rejected") //nolint:errcheck
		},
	}

	_, err := upload.StoreFileInBucket(context.Background(), client, farmer, "bucket-1", "push-token", srcPath, upload.Options{
		MaxShardsPerFile: 1,
		TempDir:          dir,
	})
	if err == nil {
		t.Fatal("expected an error once every farmer candidate has been excluded")
	}
}
