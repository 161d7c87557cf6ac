package http

import (
	"context"
	"io"
	"net/http"

	"github.com/m-mizutani/fplfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/fplfetch/pkg/domain/model"
	"github.com/m-mizutani/fplfetch/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type client struct {
	httpClient *http.Client
	userAgent  string
}

// Option is a functional option for the dataset client
type Option func(*client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		cl.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(cl *client) {
		cl.userAgent = ua
	}
}

// NewClient creates a dataset client. No timeout is set on the default client;
// a stalled transfer is bounded only by the fetch inactivity timeout.
func NewClient(opts ...Option) interfaces.DatasetClient {
	c := &client{
		httpClient: &http.Client{},
		userAgent:  types.ServiceName + "/" + types.Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenArchive issues a GET for the dataset archive and returns the unread body
func (c *client) OpenArchive(ctx context.Context, ds model.Dataset) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ds.URL, nil)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to create download request", goerr.V("url", ds.URL))
	}
	req.Header.Set("User-Agent", c.userAgent)
	if ds.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+ds.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to download archive", goerr.V("url", ds.URL))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, 0, goerr.Wrap(types.ErrUnexpectedStatus, "archive server returned an error",
			goerr.V("url", ds.URL),
			goerr.V("status", resp.StatusCode),
		)
	}

	// ContentLength is -1 when the header is absent
	return resp.Body, resp.ContentLength, nil
}
