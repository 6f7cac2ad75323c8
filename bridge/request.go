package bridge

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"gitlab.com/NebulousLabs/errors"

	"github.com/shardbridge/core/bridgeerr"
)

// pubkeyHeader and signatureHeader carry the keypair auth scheme (spec
// §4.1/§6).
const (
	pubkeyHeader    = "x-pubkey"
	signatureHeader = "x-signature"
)

// errorBody is the shape of a bridge JSON error response.
type errorBody struct {
	Error string `json:"error"`
}

// request performs method against path, attaching authentication and
// normalizing the response:
//   - transport failure -> NetworkError
//   - HTTP >= 400 with {"error": "..."} body -> BridgeError(body.error, status)
//   - HTTP >= 400 otherwise -> BridgeError(body as string, status)
//   - HTTP < 400 -> parsed JSON body, unmarshaled into out
//
// For GET, payload is treated as querystring parameters; for every other
// method it is JSON-encoded as the request body.
func (c *Client) request(ctx context.Context, method, path string, payload map[string]string, out interface{}) error {
	u, err := url.Parse(strings.TrimRight(c.baseURI, "/") + path)
	if err != nil {
		return errors.AddContext(err, "bridge: invalid path")
	}

	var bodyBytes []byte
	var canonical string
	if method == http.MethodGet {
		q := u.Query()
		for k, v := range payload {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		canonical = u.RawQuery
	} else if payload != nil {
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return errors.AddContext(err, "bridge: unable to encode request body")
		}
		canonical = string(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return errors.AddContext(err, "bridge: unable to build request")
	}
	if len(bodyBytes) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authenticate(req, method, u.Path, canonical); err != nil {
		return errors.AddContext(err, "bridge: unable to authenticate request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &bridgeerr.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &bridgeerr.NetworkError{Cause: err}
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		if json.Unmarshal(respBytes, &eb) == nil && eb.Error != "" {
			return &bridgeerr.BridgeError{Status: resp.StatusCode, Message: eb.Error}
		}
		return &bridgeerr.BridgeError{Status: resp.StatusCode, Message: string(respBytes)}
	}

	if out == nil || len(respBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return errors.AddContext(err, "bridge: unable to decode response body")
	}
	return nil
}

// authenticate attaches at most one auth mode: a keypair signature takes
// precedence over basic auth.
func (c *Client) authenticate(req *http.Request, method, path, canonical string) error {
	switch {
	case c.keyPair != nil:
		message := method + " " + path + " " + canonical
		digest := sha256.Sum256([]byte(message))
		sig := c.keyPair.Sign(digest[:])
		req.Header.Set(pubkeyHeader, hex.EncodeToString(c.keyPair.PublicKey()))
		req.Header.Set(signatureHeader, hex.EncodeToString(sig))
	case c.basic != nil:
		req.SetBasicAuth(c.basic.Email, c.basic.Pass)
	}
	return nil
}

// hashPassword returns SHA256(plaintext) hex-encoded, the representation
// bridge user operations send over the wire.
func hashPassword(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// joinExclude renders an exclude set as the comma-joined nodeID list the
// bridge expects for pointer-page and add-shard requests.
func joinExclude(nodeIDs []string) string {
	sorted := append([]string(nil), nodeIDs...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// fmtPath renders a path (or a numeric payload field) from a
// fmt.Sprintf-style format, kept as a helper so every operation reads the
// same way.
func fmtPath(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
