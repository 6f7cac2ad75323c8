package bridge

// CreateUser registers a new bridge account. The password is hashed with
// SHA256(hex) before it is sent; the bridge never sees the plaintext.
func (c *Client) CreateUser(email, password string) error {
	ctx, cancel := c.requestCtx()
	defer cancel()
	payload := map[string]string{
		"email":    email,
		"password": hashPassword(password),
	}
	return c.request(ctx, "POST", "/users", payload, nil)
}

// UpdateUser changes an account's password.
func (c *Client) UpdateUser(email, newPassword string) error {
	ctx, cancel := c.requestCtx()
	defer cancel()
	payload := map[string]string{
		"password": hashPassword(newPassword),
	}
	return c.request(ctx, "PATCH", fmtPath("/users/%s", email), payload, nil)
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(email string) error {
	ctx, cancel := c.requestCtx()
	defer cancel()
	return c.request(ctx, "DELETE", fmtPath("/users/%s", email), nil, nil)
}
