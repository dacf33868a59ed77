// Package service provides the client service that the binding coordinator
// publishes for local connections.
package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Iron-Ham/svcbind/internal/binding"
	"github.com/Iron-Ham/svcbind/internal/errors"
)

// Client is a local data-service client. The coordinator attaches the host
// repository and metastore to it before publishing.
type Client struct {
	id       string
	name     string
	endpoint string

	mu        sync.RWMutex
	repo      binding.Repository
	metaStore binding.MetaStore
}

var _ binding.ClientService = (*Client)(nil)

// New creates a Client. The id is required; name defaults to the id.
func New(id, name, endpoint string) (*Client, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewValidationError("service id is required").WithField("id")
	}
	if name == "" {
		name = id
	}
	return &Client{id: id, name: name, endpoint: endpoint}, nil
}

// ID returns the service identifier.
func (c *Client) ID() string { return c.id }

// Name returns the display name.
func (c *Client) Name() string { return c.name }

// Endpoint returns the address local connections are served on.
func (c *Client) Endpoint() string { return c.endpoint }

// SetRepository attaches the host repository.
func (c *Client) SetRepository(r binding.Repository) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo = r
}

// SetMetaStore attaches the host metastore.
func (c *Client) SetMetaStore(m binding.MetaStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metaStore = m
}

// Repository returns the attached repository, or nil.
func (c *Client) Repository() binding.Repository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.repo
}

// MetaStore returns the attached metastore, or nil.
func (c *Client) MetaStore() binding.MetaStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metaStore
}

// Attached reports whether both host handles have been attached.
func (c *Client) Attached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.repo != nil && c.metaStore != nil
}

// String implements fmt.Stringer.
func (c *Client) String() string {
	if c.endpoint == "" {
		return fmt.Sprintf("%s (%s)", c.name, c.id)
	}
	return fmt.Sprintf("%s (%s) at %s", c.name, c.id, c.endpoint)
}
