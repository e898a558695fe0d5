package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const ordersPath = "/options/orders/"

type Client struct {
	host       string
	token      string
	pageSize   int
	maxPages   int
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker API error (%d): %s", e.Status, e.Body)
}

// Temporary reports whether retrying later could succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

var ErrTooManyPages = errors.New("broker: page limit reached")

type ClientOptions struct {
	BaseURL  string
	Token    string
	PageSize int
	MaxPages int
	Timeout  time.Duration
}

func NewClient(httpClient *http.Client, opts ClientOptions) *Client {
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	host := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if host == "" {
		host = "https://api.robinhood.com"
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 200
	}
	return &Client{
		host:       host,
		token:      strings.TrimSpace(opts.Token),
		pageSize:   opts.PageSize,
		maxPages:   opts.MaxPages,
		httpClient: httpClient,
	}
}

type orderPage struct {
	Results []json.RawMessage `json:"results"`
	Next    *string           `json:"next"`
}

// FetchOrders walks the paginated order listing, following next links until
// the listing is exhausted.
func (c *Client) FetchOrders(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	query := url.Values{}
	if userID = strings.TrimSpace(userID); userID != "" {
		query.Set("user_id", userID)
	}
	if !since.IsZero() {
		query.Set("updated_at[gte]", since.UTC().Format(time.RFC3339))
	}
	if c.pageSize > 0 {
		query.Set("page_size", strconv.Itoa(c.pageSize))
	}
	next := c.host + ordersPath
	if len(query) > 0 {
		next += "?" + query.Encode()
	}

	var out []Record
	for page := 0; next != ""; page++ {
		if page >= c.maxPages {
			return out, fmt.Errorf("%w (%d)", ErrTooManyPages, c.maxPages)
		}
		body, err := c.doRequest(ctx, next)
		if err != nil {
			return out, err
		}
		var p orderPage
		if err := json.Unmarshal(body, &p); err != nil {
			return out, fmt.Errorf("decode order page: %w", err)
		}
		out = append(out, decodeRecords(p.Results)...)
		next = ""
		if p.Next != nil {
			next = strings.TrimSpace(*p.Next)
		}
	}
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
