package foxess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/anicoll/foxess-integration/internal/pkg/contxt"
	"go.uber.org/zap"
)

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns an http client that stamps every request with the given user agent.
func HTTPClient(timeout time.Duration, userAgent string) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			transport: http.DefaultTransport,
			userAgent: userAgent,
		},
		Timeout: timeout,
	}
}

type envelope struct {
	Errno  int             `json:"errno"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

type requestEditor func(req *http.Request)

func withHeader(key, value string) requestEditor {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

type transport struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

func newTransport(client *http.Client, baseURL string, timeout time.Duration) *transport {
	return &transport{
		client:  client,
		baseURL: baseURL,
		timeout: timeout,
		logger:  zap.L(),
	}
}

func (t *transport) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u, err := url.JoinPath(t.baseURL, path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("lang", "en")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// call issues one request bound to its own timeout and decodes the vendor envelope into dest.
func (t *transport) call(ctx context.Context, method, path string, query url.Values, body, dest any, editors ...requestEditor) error {
	ctx, cancel := contxt.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := t.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	for _, edit := range editors {
		edit(req)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: status %d", ErrTransport, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.logger.Error("failed to decode foxess response", zap.Error(err), zap.String("path", path), zap.ByteString("body", raw))
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, path, err)
	}
	if env.Errno != ErrnoSuccess {
		t.logger.Debug("foxess api error", zap.String("path", path), zap.Int("errno", env.Errno), zap.String("msg", env.Msg))
		return &APIError{Path: path, Errno: env.Errno, Msg: env.Msg}
	}
	if dest == nil {
		return nil
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return fmt.Errorf("%w: %s: empty result", ErrMalformedResponse, path)
	}
	if err := json.Unmarshal(env.Result, dest); err != nil {
		t.logger.Error("failed to decode foxess result", zap.Error(err), zap.String("path", path), zap.ByteString("result", env.Result))
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, path, err)
	}
	return nil
}
