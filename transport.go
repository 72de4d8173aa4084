package chronodb

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
)

// HTTPClient is the interface for the HTTP transport.
type HTTPClient interface {
	// Get sends a GET request to the server.
	Get(ctx context.Context, u *url.URL, hdr http.Header) (*http.Response, error)
	// Post sends a POST request with a JSON (possibly compressed) body.
	Post(ctx context.Context, u *url.URL, hdr http.Header, body []byte) (*http.Response, error)
}

type httpClient struct {
	client *http.Client
}

// NewHTTPClient creates the default HTTP transport.
func NewHTTPClient() HTTPClient {
	return &httpClient{
		client: http.DefaultClient,
	}
}

// Ensure httpClient implements HTTPClient.
var _ HTTPClient = (*httpClient)(nil)

func (c *httpClient) Get(ctx context.Context, u *url.URL, hdr http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	mergeHeader(req, hdr)
	return c.client.Do(req)
}

func (c *httpClient) Post(ctx context.Context, u *url.URL, hdr http.Header, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	mergeHeader(req, hdr)
	return c.client.Do(req)
}

func mergeHeader(req *http.Request, hdr http.Header) {
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
}

// rpcHeader builds the per-call headers: request id, credentials and the
// body encoding.
func rpcHeader(requestID string, auth *Auth, compression Compression) http.Header {
	hdr := make(http.Header)
	hdr.Set("X-Request-Id", requestID)
	if auth != nil {
		hdr.Set("Authorization", "Basic "+basicAuth(auth.User, auth.Password))
	}
	if compression != "" && compression != CompressionNone {
		hdr.Set("Content-Encoding", string(compression))
	}
	return hdr
}

func basicAuth(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}
