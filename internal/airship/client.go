// Package airship submits compressed bulk token transfers to a Helius AirShip endpoint.
package airship

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"solana-airdrop/internal/domain"
)

// DefaultTimeout bounds one bulk request. Providers compress and land
// many transactions before answering.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrMissingAPIKey is returned when the client is built without an API key.
	ErrMissingAPIKey = errors.New("airship api key not configured")
	// ErrEmptyRecipients is returned for a request with no recipients.
	ErrEmptyRecipients = errors.New("no recipients")
)

// Client is an HTTP client for the AirShip bulk transfer API.
type Client struct {
	endpoint   string
	apiKey     string
	rpcURL     string
	httpClient *http.Client
	log        *logrus.Entry
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRPCURL sets the RPC endpoint the provider submits transactions to.
func WithRPCURL(rpcURL string) Option {
	return func(c *Client) {
		c.rpcURL = rpcURL
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new AirShip client.
func NewClient(endpoint, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid airship endpoint %q: %w", endpoint, err)
	}

	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type airdropRequest struct {
	TokenMint        string             `json:"tokenMint"`
	Recipients       []airdropRecipient `json:"recipients"`
	SenderPrivateKey []int              `json:"senderPrivateKey"`
	RPCURL           string             `json:"rpcUrl,omitempty"`
}

type airdropRecipient struct {
	Address string      `json:"address"`
	Amount  json.Number `json:"amount"`
}

type airdropResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

// Airdrop submits the whole batch in one call and returns the provider's
// transaction reference. The call is not retried: a timeout does not prove
// the provider did not pay out.
func (c *Client) Airdrop(ctx context.Context, req domain.BulkTransferRequest) (string, error) {
	if len(req.Recipients) == 0 {
		return "", ErrEmptyRecipients
	}

	body := airdropRequest{
		TokenMint:        req.Mint,
		Recipients:       make([]airdropRecipient, len(req.Recipients)),
		SenderPrivateKey: make([]int, len(req.SenderSecretKey)),
		RPCURL:           c.rpcURL,
	}
	for i, r := range req.Recipients {
		body.Recipients[i] = airdropRecipient{Address: r.Address, Amount: json.Number(r.Amount.String())}
	}
	for i, b := range req.SenderSecretKey {
		body.SenderPrivateKey[i] = int(b)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("api-key", c.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("airship request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out airdropResponse
	decodeErr := json.Unmarshal(respBody, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && out.Error != "" {
			return "", fmt.Errorf("airship returned %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("airship returned %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	if out.Error != "" {
		return "", fmt.Errorf("airship error: %s", out.Error)
	}
	if out.Signature == "" {
		return "", errors.New("airship response missing signature")
	}

	c.log.WithFields(logrus.Fields{
		"recipients": len(req.Recipients),
		"signature":  out.Signature,
		"duration":   time.Since(start),
	}).Info("airship airdrop submitted")

	return out.Signature, nil
}
