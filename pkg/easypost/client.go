package easypost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
)

const (
	DefaultBaseURL               = "https://api.easypost.com/v2"
	defaultTimeout               = 20 * time.Second
	errorBodyReadLimit     int64 = 4096
	responseBodyReadLimit  int64 = 4 << 20
	contentTypeJSON              = "application/json"
	verificationStreet           = "417 MONTGOMERY ST"
	verificationCity             = "SAN FRANCISCO"
	verificationState            = "CA"
	verificationPostalCode       = "94104"
)

var errAPIKeyRequired = errors.New("easypost api key is required")

// Client calls the EasyPost REST API with one account's key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a client for the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

// CreateShipment requests rates for a shipment.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "easypost client not configured")
	}
	body := map[string]any{"shipment": req}

	var shipment Shipment
	if err := c.do(ctx, http.MethodPost, "shipments", body, &shipment); err != nil {
		return nil, err
	}
	return &shipment, nil
}

// BuyShipment purchases the given rate on an existing shipment.
func (c *Client) BuyShipment(ctx context.Context, shipmentID, rateID string) (*Shipment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "easypost client not configured")
	}
	shipmentID = strings.TrimSpace(shipmentID)
	rateID = strings.TrimSpace(rateID)
	if shipmentID == "" || rateID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id and rate id are required")
	}

	body := map[string]any{"rate": map[string]string{"id": rateID}}
	path := fmt.Sprintf("shipments/%s/buy", url.PathEscape(shipmentID))

	var shipment Shipment
	if err := c.do(ctx, http.MethodPost, path, body, &shipment); err != nil {
		return nil, err
	}
	return &shipment, nil
}

// VerifyCredentials creates a throwaway address to prove the key is accepted.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "easypost client not configured")
	}
	body := map[string]any{
		"address": Address{
			Street1: verificationStreet,
			City:    verificationCity,
			State:   verificationState,
			Zip:     verificationPostalCode,
			Country: "US",
		},
	}
	var out Address
	return c.do(ctx, http.MethodPost, "addresses", body, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal easypost request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build easypost request")
	}
	httpReq.SetBasicAuth(c.apiKey, "")
	httpReq.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute easypost request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, apiErr, apiErr.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode easypost response")
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	if strings.TrimSpace(apiErr.Message) == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

// AsAPIError extracts the carrier error from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
