package catalog

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

	"ProductCatalog/pkg/kit"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrValidation      = errors.New("product rejected")
	ErrBadStatus       = errors.New("catalog bad status")
	ErrUnavailable     = errors.New("catalog unavailable")
)

// Client talks to the catalog HTTP API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *Client) List(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get finds one product. The API has no single-product endpoint, so it
// lists the catalog and picks the match.
func (c *Client) Get(ctx context.Context, id int64) (Product, error) {
	products, err := c.List(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func (c *Client) Create(ctx context.Context, np NewProduct) (Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodPost, "/products", np, http.StatusCreated, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, http.StatusOK, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var e kit.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrProductNotFound
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrValidation, e.Error)
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}
}
