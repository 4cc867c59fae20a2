package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taigrr/plyview/internal/httputil"
)

// MaxModelBytes bounds how much of a model body the client reads.
const MaxModelBytes = 512 << 20

// ErrModelTooLarge is wrapped by FetchModel when a body exceeds the limit.
var ErrModelTooLarge = errors.New("model exceeds size limit")

// Client talks to a catalog service.
type Client struct {
	baseURL  string
	http     httputil.HTTPClient
	timeout  time.Duration
	maxBytes int64
}

// NewClient creates a client for the service at baseURL. A nil hc uses
// http.DefaultClient; a zero timeout leaves requests bounded only by ctx.
func NewClient(baseURL string, hc httputil.HTTPClient, timeout time.Duration) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     hc,
		timeout:  timeout,
		maxBytes: MaxModelBytes,
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// ListModels fetches the catalog listing. Failures are KindCatalog errors.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	const op = "list models"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/list-models", nil)
	if err != nil {
		return nil, &Error{Kind: KindCatalog, Op: op, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindCatalog, Op: op, Err: err}
	}
	defer resp.Body.Close()

	var body ListResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK {
		var cause error
		if body.Error != "" {
			cause = errors.New(body.Error)
		}
		return nil, &Error{Kind: KindCatalog, Op: op, Status: resp.StatusCode, Err: cause}
	}
	if decodeErr != nil {
		return nil, &Error{Kind: KindCatalog, Op: op, Err: fmt.Errorf("decode listing: %w", decodeErr)}
	}
	if !body.Success {
		msg := body.Error
		if msg == "" {
			msg = "service reported failure"
		}
		return nil, &Error{Kind: KindCatalog, Op: op, Err: errors.New(msg)}
	}
	return body.Models, nil
}

// FetchModel downloads the raw bytes of m. Failures are KindRetrieval
// errors.
func (c *Client) FetchModel(ctx context.Context, m Model) ([]byte, error) {
	const op = "fetch model"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	q := url.Values{}
	q.Set("fileId", m.FileID)
	q.Set("name", m.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/get-model?"+q.Encode(), nil)
	if err != nil {
		return nil, &Error{Kind: KindRetrieval, Op: op, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindRetrieval, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindRetrieval, Op: op, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, &Error{Kind: KindRetrieval, Op: op, Err: err}
	}
	if int64(len(data)) > c.maxBytes {
		return nil, &Error{Kind: KindRetrieval, Op: op, Err: fmt.Errorf("%w (%d bytes)", ErrModelTooLarge, c.maxBytes)}
	}
	return data, nil
}
