package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature subscribes to the confirmation of one transaction signature.
	// The subscription delivers at most one notification and then closes its channel.
	SubscribeSignature(ctx context.Context, signature string) (*SignatureSubscription, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is delivered once the signature reaches the subscribed commitment.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{} // transaction error, nil on success
}

// SignatureSubscription is a pending signatureSubscribe.
type SignatureSubscription struct {
	C <-chan SignatureNotification

	unsubscribe func()
}

// Unsubscribe stops waiting for the notification. Safe to call more than once.
func (s *SignatureSubscription) Unsubscribe() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// NewSignatureSubscription wraps a notification channel. Used by alternative
// WSClient implementations.
func NewSignatureSubscription(c <-chan SignatureNotification, unsubscribe func()) *SignatureSubscription {
	return &SignatureSubscription{C: c, unsubscribe: unsubscribe}
}
