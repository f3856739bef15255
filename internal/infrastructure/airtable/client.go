// Package airtable is the record store backed by an Airtable base.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adtraffic/internal/bootstrap/logging"
)

const pageSize = 100

// APIError is a non-2xx Airtable response.
type APIError struct {
	Operation  string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("airtable %s: status %d %s: %s", e.Operation, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from Airtable.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client is a thin REST client for one Airtable base.
type Client struct {
	baseURL    string
	baseID     string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

func NewClient(baseURL string, baseID string, token string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("airtable: base url is required")
	}
	if strings.TrimSpace(baseID) == "" {
		return nil, errors.New("airtable: base id is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("airtable: token is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:    baseURL,
		baseID:     strings.TrimSpace(baseID),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Record is one Airtable row.
type Record struct {
	ID          string         `json:"id,omitempty"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// List returns every record of table matching formula, following pagination.
func (c *Client) List(ctx context.Context, table string, formula string) ([]Record, error) {
	var out []Record
	offset := ""
	for {
		query := url.Values{}
		query.Set("pageSize", fmt.Sprint(pageSize))
		if formula != "" {
			query.Set("filterByFormula", formula)
		}
		if offset != "" {
			query.Set("offset", offset)
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.tableURL(table)+"?"+query.Encode(), "list "+table, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Records...)
		if page.Offset == "" {
			return out, nil
		}
		offset = page.Offset
	}
}

func (c *Client) Get(ctx context.Context, table string, id string) (Record, error) {
	var rec Record
	err := c.do(ctx, http.MethodGet, c.tableURL(table)+"/"+url.PathEscape(id), "get "+table, nil, &rec)
	return rec, err
}

// Update patches fields on one record with typecast enabled.
func (c *Client) Update(ctx context.Context, table string, id string, fields map[string]any) (Record, error) {
	body := map[string]any{"fields": fields, "typecast": true}
	var rec Record
	err := c.do(ctx, http.MethodPatch, c.tableURL(table)+"/"+url.PathEscape(id), "update "+table, body, &rec)
	return rec, err
}

// Create inserts one record with typecast enabled.
func (c *Client) Create(ctx context.Context, table string, fields map[string]any) (Record, error) {
	body := map[string]any{
		"records":  []Record{{Fields: fields}},
		"typecast": true,
	}
	var resp struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodPost, c.tableURL(table), "create "+table, body, &resp); err != nil {
		return Record{}, err
	}
	if len(resp.Records) == 0 {
		return Record{}, fmt.Errorf("airtable create %s: empty response", table)
	}
	return resp.Records[0], nil
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
}

func (c *Client) do(ctx context.Context, method string, target string, operation string, body any, dst any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("airtable %s: encode body: %w", operation, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("airtable %s: create request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("airtable %s: do request: %w", operation, err)
	}
	defer resp.Body.Close()

	logging.Debug(ctx, "airtable response",
		slog.String("operation", operation),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return decodeAPIError(operation, resp.StatusCode, raw)
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("airtable %s: decode response: %w", operation, err)
	}
	return nil
}

// decodeAPIError accepts both {"error":"NOT_FOUND"} and
// {"error":{"type":...,"message":...}}.
func decodeAPIError(operation string, status int, raw []byte) error {
	apiErr := &APIError{Operation: operation, StatusCode: status}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && len(envelope.Error) > 0 {
		var detail struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		var code string
		switch {
		case json.Unmarshal(envelope.Error, &detail) == nil:
			apiErr.Type, apiErr.Message = detail.Type, detail.Message
		case json.Unmarshal(envelope.Error, &code) == nil:
			apiErr.Type = code
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
