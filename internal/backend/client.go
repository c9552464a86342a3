// Package backend is the HTTP client for the wallet backend: transaction
// relay, the onboarding handshake endpoints, and path-payment quotes. The
// backend is an external collaborator; this client carries requests and
// reports failures, nothing more.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrStaleTransaction is returned when the relay rejects a submission
// because the transaction's validity window elapsed. Recovery is a full
// rebuild (new sequence, fee, timebounds), never a resubmission of the
// stale envelope.
var ErrStaleTransaction = errors.New("transaction validity window elapsed")

// txTooLate is the ledger result code for a transaction submitted after
// its timebounds.
const txTooLate = "tx_too_late"

// DefaultTimeout bounds a request when the caller configures no timeout.
const DefaultTimeout = 30 * time.Second

// Client is the wallet backend API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL. A non-positive
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// QuoteRequest asks for a path-payment quote. Slippage is in basis
// points; the backend applies it to the bound it returns.
type QuoteRequest struct {
	SourceAssetCode   string `json:"source_asset_code"`
	SourceAssetIssuer string `json:"source_asset_issuer,omitempty"`
	DestAssetCode     string `json:"dest_asset_code"`
	DestAssetIssuer   string `json:"dest_asset_issuer,omitempty"`
	Amount            string `json:"amount"`
	Mode              string `json:"mode"` // "strict_send" or "strict_receive"
	SlippageBps       int    `json:"slippage_bps"`
}

// QuoteAsset is one hop of a quoted path.
type QuoteAsset struct {
	Code   string `json:"code"`
	Issuer string `json:"issuer,omitempty"`
}

// QuoteResponse carries the quoted counter-amount with slippage already
// applied, plus the intermediate path. The builder treats every field as
// opaque input.
type QuoteResponse struct {
	// DestMin is set for strict-send quotes.
	DestMin string `json:"dest_min,omitempty"`
	// SendMax is set for strict-receive quotes.
	SendMax string       `json:"send_max,omitempty"`
	Path    []QuoteAsset `json:"path"`
}

type submitRequest struct {
	SignedTransaction string `json:"signed_transaction"`
}

type submitResponse struct {
	Hash string `json:"hash"`
}

type onboardBeginRequest struct {
	PublicID string `json:"public_id"`
}

type onboardBeginResponse struct {
	UnsignedTransaction string `json:"unsigned_transaction"`
}

type onboardCompleteRequest struct {
	PublicID          string `json:"public_id"`
	SignedTransaction string `json:"signed_transaction"`
}

type errorResponse struct {
	Error      string `json:"error"`
	ResultCode string `json:"result_code,omitempty"`
}

// SubmitTransaction relays a signed transaction and returns its hash.
func (c *Client) SubmitTransaction(ctx context.Context, signedXDR string) (string, error) {
	var resp submitResponse
	err := c.post(ctx, "/tx/submit", submitRequest{SignedTransaction: signedXDR}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Hash, nil
}

// BeginOnboard requests the server-issued onboarding transaction for an
// account.
func (c *Client) BeginOnboard(ctx context.Context, publicID string) (string, error) {
	var resp onboardBeginResponse
	err := c.post(ctx, "/onboard/begin", onboardBeginRequest{PublicID: publicID}, &resp)
	if err != nil {
		return "", err
	}
	if resp.UnsignedTransaction == "" {
		return "", fmt.Errorf("onboard begin returned no transaction")
	}
	return resp.UnsignedTransaction, nil
}

// CompleteOnboard delivers the signed onboarding transaction.
func (c *Client) CompleteOnboard(ctx context.Context, publicID, signedXDR string) error {
	return c.post(ctx, "/onboard/complete", onboardCompleteRequest{
		PublicID:          publicID,
		SignedTransaction: signedXDR,
	}, nil)
}

// Quote fetches a path-payment quote.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	var resp QuoteResponse
	if err := c.post(ctx, "/quote", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends a JSON body and decodes the response into out when non-nil.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeError turns a non-2xx response into an error, mapping the
// too-late result code to ErrStaleTransaction.
func (c *Client) decodeError(path string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr errorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		if apiErr.ResultCode == txTooLate {
			return fmt.Errorf("%w: %s", ErrStaleTransaction, apiErr.Error)
		}
		return fmt.Errorf("POST %s: %s (status %d)", path, apiErr.Error, resp.StatusCode)
	}
	return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
}
