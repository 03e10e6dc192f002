package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	httpTimeout      = 15 * time.Second
	handshakeTimeout = 10 * time.Second
	confirmInterval  = 200 * time.Millisecond
)

// Client talks JSON-RPC to a ledger node
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for the node RPC endpoint at rpcURL
func NewClient(rpcURL string) *Client {
	return &Client{
		url: rpcURL,
		http: &http.Client{
			Timeout: httpTimeout,
		},
	}
}

// URL returns the RPC endpoint
func (c *Client) URL() string {
	return c.url
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	req := Request{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
		req.Params = raw
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", method, resp.Status)
	}

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if rpcResp.ID != req.ID {
		return fmt.Errorf("%s: response id %q does not match request id %q", method, rpcResp.ID, req.ID)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("%s: failed to decode result: %w", method, err)
	}
	return nil
}

// GetAccountInfo fetches the account at key. It returns ErrAccountNotFound
// if nothing is stored there.
func (c *Client) GetAccountInfo(ctx context.Context, key PublicKey) (*Account, error) {
	var res AccountInfoResult
	if err := c.call(ctx, MethodGetAccountInfo, []any{key.String()}, &res); err != nil {
		return nil, err
	}
	if res.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	data, err := base64.StdEncoding.DecodeString(res.Value.Data)
	if err != nil {
		return nil, fmt.Errorf("account %s: malformed data: %w", key, err)
	}
	return &Account{PublicKey: key, Data: data, Slot: res.Value.Slot}, nil
}

// GetRecentBlockhash returns a blockhash new transactions can reference
func (c *Client) GetRecentBlockhash(ctx context.Context) (string, error) {
	var res BlockhashResult
	if err := c.call(ctx, MethodGetRecentBlockhash, nil, &res); err != nil {
		return "", err
	}
	return res.Blockhash, nil
}

// GetSlot returns the height of the latest block
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := c.call(ctx, MethodGetSlot, nil, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// SendTransaction submits tx and returns its signature
func (c *Client) SendTransaction(ctx context.Context, tx *Transaction) (string, error) {
	encoded, err := tx.Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction: %w", err)
	}
	var sig string
	if err := c.call(ctx, MethodSendTransaction, []any{encoded}, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// GetSignatureStatus returns the status of a transaction, or nil if the
// node has not processed it yet.
func (c *Client) GetSignatureStatus(ctx context.Context, sig string) (*SignatureStatus, error) {
	var status *SignatureStatus
	if err := c.call(ctx, MethodGetSignatureStatus, []any{sig}, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// ConfirmTransaction waits until the node has processed sig. It returns the
// program error if the transaction failed.
func (c *Client) ConfirmTransaction(ctx context.Context, sig string) error {
	ticker := time.NewTicker(confirmInterval)
	defer ticker.Stop()

	for {
		status, err := c.GetSignatureStatus(ctx, sig)
		if err != nil {
			return err
		}
		if status != nil {
			if status.Err != nil {
				return status.Err
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not confirmed: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// websocketURL derives the notification endpoint from the RPC URL
func websocketURL(rpcURL string) (string, error) {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + WebsocketPath
	return u.String(), nil
}

// Subscribe opens a websocket to the node and streams a Notification per
// block. The channel is closed when the connection drops or ctx is done.
func (c *Client) Subscribe(ctx context.Context) (<-chan Notification, error) {
	wsURL, err := websocketURL(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid rpc url: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := make(chan Notification, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		defer close(ch)
		defer close(done)
		for {
			var n Notification
			if err := conn.ReadJSON(&n); err != nil {
				if ctx.Err() == nil {
					log.Debug().Err(err).Str("url", wsURL).Msg("subscription closed")
				}
				return
			}
			select {
			case ch <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
