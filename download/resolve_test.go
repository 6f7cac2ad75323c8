package download

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shardbridge/core/bridge"
	"github.com/shardbridge/core/internal/testutil"
)

func TestResolveFileFromPointersStopsAtShortPage(t *testing.T) {
	fb := testutil.NewFakeBridge()
	defer fb.Close()

	// Exactly pointerPageSize pointers on the first page, then an empty
	// second page: the pagination boundary case where a full page makes
	// the resolver request one more page, and the empty page that follows
	// must end the listing without adding pointers.
	fb.Handle(http.MethodGet, "/buckets/b1/files/f1", func(w http.ResponseWriter, r *http.Request) {
		skip := r.URL.Query().Get("skip")
		w.Header().Set("Content-Type", "application/json")
		if skip == "0" {
			var body string
			body = "["
			for i := 0; i < pointerPageSize; i++ {
				if i > 0 {
					body += ","
				}
				body += fmt.Sprintf(`{"index":%d,"size":1,"hash":"h","token":"t","farmer":{"farmer":{"address":"a","nodeID":"n"},"token":"t"}}`, i)
			}
			body += "]"
			w.Write([]byte(body)) //nolint:errcheck
			return
		}
		w.Write([]byte("[]")) //nolint:errcheck
	})

	client, err := bridge.New(bridge.Options{BaseURI: fb.URL()})
	if err != nil {
		t.Fatal(err)
	}

	pointers, err := resolveFileFromPointers(client, "b1", "f1", "tok", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(pointers) != pointerPageSize {
		t.Fatalf("expected %d pointers, got %d", pointerPageSize, len(pointers))
	}
}

func TestResolveFileFromPointersEmptyFile(t *testing.T) {
	fb := testutil.NewFakeBridge()
	defer fb.Close()

	fb.HandleJSON(http.MethodGet, "/buckets/b1/files/empty", http.StatusOK, []interface{}{})

	client, err := bridge.New(bridge.Options{BaseURI: fb.URL()})
	if err != nil {
		t.Fatal(err)
	}

	pointers, err := resolveFileFromPointers(client, "b1", "empty", "tok", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(pointers) != 0 {
		t.Fatalf("expected 0 pointers for an empty file, got %d", len(pointers))
	}
}
