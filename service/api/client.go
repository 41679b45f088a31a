// Package api is the REST client for the marketplace collaborator. It
// owns no persistence; it translates the wire surface into domain
// types and coded errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

// TokenFunc supplies the current access token; empty means anonymous.
type TokenFunc func() string

type Client struct {
	base    string
	http    *http.Client
	token   TokenFunc
	breaker *gobreaker.CircuitBreaker

	// OnUnauthorized runs once per 401 response, before ErrUnauthorized
	// is returned. Set before first use; the installer clears auth
	// state the same way the transport's policy-violation hook does.
	OnUnauthorized func()
}

func NewClient(baseURL string, token TokenFunc) *Client {
	return &Client{
		base:  baseURL,
		http:  &http.Client{Timeout: 15 * time.Second},
		token: token,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "marketplace-api",
			Timeout: 10 * time.Second,
		}),
	}
}

// do runs one round trip. Business-level 4xx responses count as
// breaker successes; only transport faults and 5xx trip it.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		resp, rerr := c.http.Do(req)
		if rerr != nil {
			return nil, rerr
		}
		if resp.StatusCode >= 500 {
			defer resp.Body.Close()
			raw, _ := io.ReadAll(resp.Body)
			return nil, errors.Errorf("server error %d: %s", resp.StatusCode, raw)
		}
		return resp, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}

	resp := res.(*http.Response)
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return nil, ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		detail := struct {
			Detail string `json:"detail"`
		}{}
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		return nil, &CodedError{Code: resp.StatusCode, Detail: detail.Detail}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, errors.Wrapf(err, "decode %s %s", method, path)
		}
	}
	return resp.Header, nil
}
