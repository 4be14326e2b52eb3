package stub

import (
	"context"
	"errors"
	"sync"

	"solana-airdrop/internal/solana"
)

// WSClient implements solana.WSClient for testing.
// Notifications are pushed explicitly with Notify.
type WSClient struct {
	mu     sync.Mutex
	subs   map[string]chan solana.SignatureNotification
	closed bool

	// SubscribeErr, when set, is returned by every SubscribeSignature call.
	SubscribeErr error
}

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{subs: make(map[string]chan solana.SignatureNotification)}
}

// SubscribeSignature registers a pending subscription.
func (c *WSClient) SubscribeSignature(_ context.Context, signature string) (*solana.SignatureSubscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("client closed")
	}
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}

	ch := make(chan solana.SignatureNotification, 1)
	c.subs[signature] = ch
	return solana.NewSignatureSubscription(ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, signature)
	}), nil
}

// Notify delivers a notification to the subscriber of signature.
// Returns false if nobody is subscribed.
func (c *WSClient) Notify(signature string, txErr interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.subs[signature]
	if !ok {
		return false
	}
	delete(c.subs, signature)
	ch <- solana.SignatureNotification{Signature: signature, Slot: 1, Err: txErr}
	close(ch)
	return true
}

// Subscribed reports whether signature has a pending subscription.
func (c *WSClient) Subscribed(signature string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[signature]
	return ok
}

// Close marks the client closed.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

var _ solana.WSClient = (*WSClient)(nil)
