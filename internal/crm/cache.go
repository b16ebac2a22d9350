package crm

import (
	"context"
	"sync"

	"github.com/smileynet/crmedit/internal/contact"
)

// ReferenceSource fetches the reference collections.
type ReferenceSource interface {
	Accounts(ctx context.Context) ([]contact.Account, error)
	Users(ctx context.Context) ([]contact.User, error)
}

// Cache stores the account and user collections fetched from a source.
// Errors are not cached. Invalidate drops both collections so the next read
// goes back to the source.
type Cache struct {
	src ReferenceSource

	mu       sync.Mutex
	accounts []contact.Account
	users    []contact.User
	hasAcc   bool
	hasUsers bool
}

// NewCache creates an empty cache in front of src.
func NewCache(src ReferenceSource) *Cache {
	return &Cache{src: src}
}

// Accounts returns the cached accounts, fetching them on a miss.
func (c *Cache) Accounts(ctx context.Context) ([]contact.Account, error) {
	c.mu.Lock()
	if c.hasAcc {
		defer c.mu.Unlock()
		return c.accounts, nil
	}
	c.mu.Unlock()

	accounts, err := c.src.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts, c.hasAcc = accounts, true
	return accounts, nil
}

// Users returns the cached users, fetching them on a miss.
func (c *Cache) Users(ctx context.Context) ([]contact.User, error) {
	c.mu.Lock()
	if c.hasUsers {
		defer c.mu.Unlock()
		return c.users, nil
	}
	c.mu.Unlock()

	users, err := c.src.Users(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.users, c.hasUsers = users, true
	return users, nil
}

// Invalidate clears all cached entries.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts, c.users = nil, nil
	c.hasAcc, c.hasUsers = false, false
}
