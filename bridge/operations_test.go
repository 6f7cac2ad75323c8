package bridge_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shardbridge/core/bridge"
	"github.com/shardbridge/core/internal/testutil"
	"github.com/shardbridge/core/model"
)

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

func TestCreateAndListBuckets(t *testing.T) {
	fb := testutil.NewFakeBridge()
	defer fb.Close()
	fb.HandleJSON(http.MethodPost, "/buckets", http.StatusOK, model.Bucket{ID: "b1", Name: "photos"})
	fb.HandleJSON(http.MethodGet, "/buckets", http.StatusOK, []model.Bucket{{ID: "b1", Name: "photos"}})

	client := newTestClient(t, fb)
	bucket, err := client.CreateBucket("photos")
	if err != nil {
		t.Fatal(err)
	}
	if bucket.ID != "b1" {
		t.Fatalf("unexpected bucket: %+v", bucket)
	}

	buckets, err := client.Buckets()
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 1 || buckets[0].ID != "b1" {
		t.Fatalf("unexpected bucket list: %+v", buckets)
	}
}

func TestDeleteBucketPropagatesBridgeError(t *testing.T) {
	fb := testutil.NewFakeBridge()
	defer fb.Close()
	fb.HandleJSON(http.MethodDelete, "/buckets/missing", http.StatusNotFound, map[string]string{"error": "bucket not found"})

	client := newTestClient(t, fb)
	err := client.DeleteBucket("missing")
	if err == nil {
		t.Fatal("expected an error for a missing bucket")
	}
}

func TestCreateUserHashesPasswordBeforeSending(t *testing.T) {
	fb := testutil.NewFakeBridge()
	defer fb.Close()
	var gotBody string
	fb.Handle(http.MethodPost, "/users", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, fb)
	if err := client.CreateUser("u@example.com", "plaintext-pw-123"); err != nil {
		t.Fatal(err)
	}
	if gotBody == "" {
		t.Fatal("expected a request body")
	}
	if strings.Contains(gotBody, "plaintext-pw-123") {
		t.Fatalf("expected the password to be hashed before sending, got body %q", gotBody)
	}
}

func TestAddAndListKeys(t *testing.T) {
	fb := testutil.NewFakeBridge()
	defer fb.Close()
	fb.HandleJSON(http.MethodPost, "/keys", http.StatusOK, nil)
	fb.HandleJSON(http.MethodGet, "/keys", http.StatusOK, []map[string]string{{"key": "deadbeef"}})

	client := newTestClient(t, fb)
	if err := client.AddKey("deadbeef"); err != nil {
		t.Fatal(err)
	}
	keys, err := client.ListKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "deadbeef" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestContactsListsOverlayContacts(t *testing.T) {
	fb := testutil.NewFakeBridge()
	defer fb.Close()
	fb.HandleJSON(http.MethodGet, "/contacts", http.StatusOK, []model.Contact{
		{Address: "10.0.0.1", NodeID: "n1"},
	})

	client := newTestClient(t, fb)
	contacts, err := client.Contacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 || contacts[0].NodeID != "n1" {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}
}
