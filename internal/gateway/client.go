package gateway

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
)

const (
	// UserAgent is sent with every request.
	UserAgent = "vendorsync/1.0"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 10 << 20
)

// Client reads and writes vendor records on the remote API.
type Client interface {
	// Fetch returns the current remote record for key.
	Fetch(ctx context.Context, key record.EntityKey) (record.Payload, error)

	// Push replaces the remote record for key with payload.
	Push(ctx context.Context, key record.EntityKey, payload record.Payload) error
}

// HTTPClient is the net/http implementation of Client.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a client for the API rooted at baseURL. A timeout of
// zero means requests block until the server answers or ctx is cancelled.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Mark(
			errors.Newf("invalid API base URL %q", baseURL),
			errors.ErrConfiguration,
		)
	}
	if apiKey == "" {
		return nil, errors.Mark(errors.New("API key is empty"), errors.ErrConfiguration)
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Fetch issues GET {base}/{EncodeKey(key)}?apikey=... and decodes the body.
// Any non-2xx status, or a body that is not a non-empty JSON object, fails
// with *RemoteError.
func (c *HTTPClient) Fetch(ctx context.Context, key record.EntityKey) (record.Payload, error) {
	req, err := c.newRequest(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, c.remoteError(http.MethodGet, key, status, body)
	}

	// gjson only classifies the body; IsObject looks at the first token, so
	// validity is checked first. Decoding happens once, below.
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, c.remoteError(http.MethodGet, key, status, body).withMessage("response is not a JSON object")
	}

	var payload record.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrapf(err, "decode vendor %q", key)
	}
	if payload.IsEmpty() {
		return nil, c.remoteError(http.MethodGet, key, status, body).withMessage("response is an empty object")
	}
	return payload, nil
}

// Push issues PUT {base}/{EncodeKey(key)}?apikey=... with payload as the
// body. Any status other than 200 fails with *RemoteError.
func (c *HTTPClient) Push(ctx context.Context, key record.EntityKey, payload record.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "encode vendor %q", key)
	}

	req, err := c.newRequest(ctx, http.MethodPut, key, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return c.remoteError(http.MethodPut, key, status, respBody)
	}
	return nil
}

// URL returns the request URL for key with the API key redacted.
func (c *HTTPClient) URL(key record.EntityKey) string {
	return redact(c.endpoint(key), c.apiKey)
}

func (c *HTTPClient) endpoint(key record.EntityKey) string {
	q := url.Values{"apikey": []string{c.apiKey}}
	return c.baseURL + "/" + EncodeKey(key) + "?" + q.Encode()
}

func (c *HTTPClient) newRequest(ctx context.Context, method string, key record.EntityKey, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(key), body)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s request for %q", method, key)
	}
	req.Header.Set("User-Agent", UserAgent)
	return req, nil
}

func (c *HTTPClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		target := redact(req.URL.String(), c.apiKey)
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return 0, nil, errors.Wrapf(ctxErr, "%s %s", req.Method, target)
		}
		// url.Error embeds the full URL, including the API key.
		return 0, nil, errors.Newf("%s %s: %s", req.Method, target, redact(err.Error(), c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "read response body")
	}
	return resp.StatusCode, body, nil
}

func (c *HTTPClient) remoteError(method string, key record.EntityKey, status int, body []byte) *RemoteError {
	return &RemoteError{
		Method:  method,
		Status:  status,
		URL:     c.URL(key),
		Body:    string(body),
		Message: errorMessage(body),
	}
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(secret), "REDACTED")
	return strings.ReplaceAll(s, secret, "REDACTED")
}
