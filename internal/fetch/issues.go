// Package fetch downloads the external datasets the build consumes: the
// gh-board issues document and files from a previous deployment.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/li-boxuan/community/pkg/logging"
	"github.com/li-boxuan/community/pkg/retry"
)

// requestTimeout caps every single HTTP request; the gh-board mirrors are
// slow to wake up but anything beyond this means the mirror is down.
const requestTimeout = 10 * time.Second

// Client performs the HTTP fetches with retries
type Client struct {
	httpClient *http.Client
	logger     *logging.Logger
	retryCfg   retry.Config
}

// NewClient creates a fetch client
func NewClient(logger *logging.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		retryCfg:   retry.DefaultConfig(),
	}
}

// Issues downloads the gh-board issues document from url, falling back to
// backupURL when the primary mirror fails.
func (c *Client) Issues(ctx context.Context, url, backupURL string) ([]byte, error) {
	data, err := c.get(ctx, url)
	if err == nil {
		return data, nil
	}

	c.logger.Warn("fetching issues failed, trying backup url", map[string]interface{}{
		"url": url, "backup": backupURL, "error": err.Error(),
	})
	data, backupErr := c.get(ctx, backupURL)
	if backupErr != nil {
		return nil, fmt.Errorf("failed to fetch issues from %s and %s: %w", url, backupURL, backupErr)
	}
	return data, nil
}

// get downloads one URL with retries and returns the body
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
