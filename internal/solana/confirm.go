package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default confirmation settings.
const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// ErrConfirmTimeout is returned when a signature is not confirmed in time.
var ErrConfirmTimeout = errors.New("transaction confirmation timeout")

// TransactionError is returned when a confirmed transaction failed on-chain.
type TransactionError struct {
	Signature string
	Err       interface{}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// Confirmer waits for transaction signatures to reach a commitment level.
// It uses signatureSubscribe when a WSClient is available and falls back to
// polling getSignatureStatuses otherwise.
type Confirmer struct {
	rpc          RPCClient
	ws           WSClient
	commitment   string
	timeout      time.Duration
	pollInterval time.Duration
}

// ConfirmerOption configures Confirmer.
type ConfirmerOption func(*Confirmer)

// WithWSClient enables push confirmations.
func WithWSClient(ws WSClient) ConfirmerOption {
	return func(c *Confirmer) {
		c.ws = ws
	}
}

// WithConfirmTimeout bounds how long a single confirmation may take.
func WithConfirmTimeout(d time.Duration) ConfirmerOption {
	return func(c *Confirmer) {
		c.timeout = d
	}
}

// WithPollInterval sets the getSignatureStatuses polling interval.
func WithPollInterval(d time.Duration) ConfirmerOption {
	return func(c *Confirmer) {
		c.pollInterval = d
	}
}

// WithConfirmCommitment sets the commitment a signature must reach.
func WithConfirmCommitment(commitment string) ConfirmerOption {
	return func(c *Confirmer) {
		c.commitment = commitment
	}
}

// NewConfirmer creates a new Confirmer.
func NewConfirmer(rpc RPCClient, opts ...ConfirmerOption) *Confirmer {
	c := &Confirmer{
		rpc:          rpc,
		commitment:   CommitmentConfirmed,
		timeout:      DefaultConfirmTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Confirm blocks until signature reaches the configured commitment, fails
// on-chain, or the timeout elapses.
func (c *Confirmer) Confirm(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var notifications <-chan SignatureNotification
	if c.ws != nil {
		sub, err := c.ws.SubscribeSignature(ctx, signature)
		if err == nil {
			defer sub.Unsubscribe()
			notifications = sub.C
		}
		// Subscription failures fall through to polling.
	}

	// Check once up front: the transaction may already be confirmed.
	done, err := c.checkStatus(ctx, signature)
	if done || err != nil {
		return err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s after %s", ErrConfirmTimeout, signature, c.timeout)
			}
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				notifications = nil
				continue
			}
			if n.Err != nil {
				return &TransactionError{Signature: signature, Err: n.Err}
			}
			return nil
		case <-ticker.C:
			done, err := c.checkStatus(ctx, signature)
			if done || err != nil {
				return err
			}
		}
	}
}

// checkStatus reports whether signature is final. Transient RPC errors are
// swallowed so the next tick can retry.
func (c *Confirmer) checkStatus(ctx context.Context, signature string) (bool, error) {
	statuses, err := c.rpc.GetSignatureStatuses(ctx, signature)
	if err != nil || len(statuses) == 0 || statuses[0] == nil {
		return false, nil
	}
	status := statuses[0]
	if status.Err != nil {
		return true, &TransactionError{Signature: signature, Err: status.Err}
	}
	return status.Reached(c.commitment), nil
}
