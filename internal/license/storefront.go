package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
)

// Storefront is the in-platform store selling the pro upgrade.
type Storefront interface {
	// Active reports whether sku has been bought.
	Active(ctx context.Context, sku string) (bool, error)
	// Buy runs the purchase for sku. It returns ErrUnavailable when the
	// store cannot sell it and ErrPurchaseCancelled when the user aborts.
	Buy(ctx context.Context, sku string) error
	// Verify reports whether key is a license the store issued.
	Verify(ctx context.Context, key string) (bool, error)
}

// HTTPStorefront talks to a storefront over its JSON API:
//
//	GET  /v1/purchases?sku=...   -> {"active": bool}
//	POST /v1/purchases           {"sku"} -> 200 bought, 409 cancelled
//	POST /v1/licenses/verify     {"key"} -> {"valid": bool}
//
// 404 and 503 mean the store does not offer the product.
type HTTPStorefront struct {
	baseURL string
	client  *httpclient.Client
}

// NewHTTPStorefront returns a client for the storefront at baseURL, retrying
// transport errors and 5xx responses retries times.
func NewHTTPStorefront(baseURL string, timeout time.Duration, retries int) *HTTPStorefront {
	backoff := heimdall.NewConstantBackoff(100*time.Millisecond, 5*time.Millisecond)
	retrier := heimdall.NewRetrier(backoff)

	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetrier(retrier),
		httpclient.WithRetryCount(retries),
	)

	return &HTTPStorefront{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *HTTPStorefront) Active(ctx context.Context, sku string) (bool, error) {
	var resp struct {
		Active bool `json:"active"`
	}
	u := s.baseURL + "/v1/purchases?sku=" + url.QueryEscape(sku)
	if err := s.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return false, err
	}
	return resp.Active, nil
}

func (s *HTTPStorefront) Buy(ctx context.Context, sku string) error {
	return s.do(ctx, http.MethodPost, s.baseURL+"/v1/purchases", map[string]string{"sku": sku}, nil)
}

func (s *HTTPStorefront) Verify(ctx context.Context, key string) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/v1/licenses/verify", map[string]string{"key": key}, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

func (s *HTTPStorefront) do(ctx context.Context, method, u string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusServiceUnavailable:
		return ErrUnavailable
	case resp.StatusCode == http.StatusConflict:
		return ErrPurchaseCancelled
	case resp.StatusCode >= http.StatusBadRequest:
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("storefront: %s", apiErr.Message)
		}
		return fmt.Errorf("storefront: %s", resp.Status)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
