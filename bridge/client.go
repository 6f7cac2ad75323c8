// Package bridge implements the client-side request engine for the trusted
// bridge service: authenticated HTTP requests, response normalization, and
// the bucket/file/frame/key/user/contact/token/mirror operations built on
// top of it.
package bridge

import (
	"context"
	"net/http"
	"os"
	"time"

	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/log"

	"github.com/shardbridge/core/crypto"
)

// envBaseURI is the environment variable the constructor consults for a
// default base URI when none is passed explicitly.
const envBaseURI = "STORJ_BRIDGE"

// DefaultTimeout is the bridge request's total timeout.
const DefaultTimeout = 20 * time.Second

// DefaultRetries is the default number of retries for shard staging-frame
// negotiation.
const DefaultRetries = 6

// BasicAuth is an email/password credential. When set, it takes the place
// of keypair signing; Pass is SHA256(password) hex-encoded.
type BasicAuth struct {
	Email string
	Pass  string
}

// Options configures a Client.
type Options struct {
	// BaseURI is the bridge's base URI. If empty, the constructor falls
	// back to the STORJ_BRIDGE environment variable.
	BaseURI string
	// KeyPair, if set, signs every request (takes precedence over Basic).
	KeyPair *crypto.KeyPair
	// Basic, if set and KeyPair is nil, is sent as basic auth.
	Basic *BasicAuth
	// HTTPClient is the transport used for requests; defaults to a
	// client with DefaultTimeout.
	HTTPClient *http.Client
	// Timeout overrides DefaultTimeout for the HTTPClient this
	// constructor builds. Ignored if HTTPClient is set.
	Timeout time.Duration
	// Logger is stored on the client; defaults to a logger writing to
	// os.Stderr. The request engine writes no request/response entries
	// to it.
	Logger *log.Logger
}

// Client is the bridge request engine plus its higher-level operations
// (buckets, files, frames, keys, users, contacts, tokens, mirrors).
type Client struct {
	baseURI    string
	keyPair    *crypto.KeyPair
	basic      *BasicAuth
	httpClient *http.Client
	log        *log.Logger
}

// New builds a Client. If opts.BaseURI is empty, the STORJ_BRIDGE
// environment variable is read once here and stored; it is never read
// again.
func New(opts Options) (*Client, error) {
	baseURI := opts.BaseURI
	if baseURI == "" {
		baseURI = os.Getenv(envBaseURI)
	}
	if baseURI == "" {
		return nil, errors.New("bridge: no base URI configured and STORJ_BRIDGE is unset")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = log.NewLogger(os.Stderr)
		if err != nil {
			return nil, errors.AddContext(err, "unable to create bridge logger")
		}
	}

	return &Client{
		baseURI:    baseURI,
		keyPair:    opts.KeyPair,
		basic:      opts.Basic,
		httpClient: httpClient,
		log:        logger,
	}, nil
}

// BaseURI returns the bridge base URI this client was configured with.
func (c *Client) BaseURI() string {
	return c.baseURI
}

// requestCtx returns a context carrying DefaultTimeout, used by every
// higher-level operation in this package for its request.
func (c *Client) requestCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DefaultTimeout)
}
