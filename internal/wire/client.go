// Package wire issues signed JSON calls to AWS service endpoints.
package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jacentio/stratum/internal/creds"
	"github.com/jacentio/stratum/internal/sigv4"
)

// Doer performs one HTTP round trip. *http.Client satisfies it; tests
// substitute their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends signed operation calls to one service region. Each call
// is an independent request; the client owns no sockets or pools
// beyond what its Doer provides.
type Client struct {
	Creds creds.Credentials

	// HTTP performs the round trips. Nil means http.DefaultClient.
	HTTP Doer

	// Endpoint overrides the derived service URL, for local endpoints.
	Endpoint string

	Signer sigv4.Signer
	Logger *slog.Logger
}

// Call invokes a named operation: it serializes in, signs and sends
// the request, and decodes the JSON response into out (which may be
// nil). target is the operation dispatch header value, e.g.
// "DynamoDB_20120810.PutItem". Non-2xx responses come back as a
// *CallError preserving the status and raw body.
func (c *Client) Call(ctx context.Context, service, target string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("stratum: marshal %s request: %w", target, err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.%s.amazonaws.com/", service, c.Creds.Region)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("stratum: endpoint %q: %w", endpoint, err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	headers.Set("X-Amz-Target", target)

	signed := c.Signer.Sign(sigv4.Request{
		Method:  http.MethodPost,
		URL:     u,
		Query:   u.Query(),
		Headers: headers,
		Body:    body,
		Service: service,
		Region:  c.Creds.Region,
		Creds:   c.Creds,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("stratum: build %s request: %w", target, err)
	}
	req.Header = signed

	doer := c.HTTP
	if doer == nil {
		doer = http.DefaultClient
	}
	resp, err := doer.Do(req)
	if err != nil {
		return fmt.Errorf("stratum: %s: %w", target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("stratum: read %s response: %w", target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		callErr := newCallError(resp.StatusCode, raw)
		c.log().Debug("remote call failed",
			"target", target,
			"status", resp.StatusCode,
			"type", callErr.TypeName,
		)
		return callErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("stratum: decode %s response: %w", target, err)
		}
	}
	return nil
}

func (c *Client) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
