package bridge

import (
	"github.com/shardbridge/core/model"
)

// Info fetches the bridge's root info document.
func (c *Client) Info() (map[string]interface{}, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var info map[string]interface{}
	if err := c.request(ctx, "GET", "/", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// Contacts lists known contacts on the overlay. A bridge.Client satisfies
// tunnel.ContactSource, so it can be attached via tunnel.Client's
// WithContactSource as the last-resort neighbor fallback (§4.8 step 2)
// when a node's own tunnelers set and seed list are both empty.
func (c *Client) Contacts() ([]model.Contact, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var contacts []model.Contact
	if err := c.request(ctx, "GET", "/contacts", nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// Contact fetches a single contact by nodeID.
func (c *Client) Contact(nodeID string) (*model.Contact, error) {
	ctx, cancel := c.requestCtx()
	defer cancel()
	var contact model.Contact
	if err := c.request(ctx, "GET", fmtPath("/contacts/%s", nodeID), nil, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}
