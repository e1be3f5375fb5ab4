package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DeployedOptions controls a deployed-data fetch
type DeployedOptions struct {
	// DeployURL is the base URL of the current deployment
	DeployURL string
	// UpstreamDeployURL is tried per file when the deploy URL fails;
	// empty when the repository has no upstream.
	UpstreamDeployURL string
	// OutputDir receives the downloaded files (flattened to basenames)
	OutputDir string
	// AllowFailure skips files that fail on both URLs instead of aborting
	AllowFailure bool
}

// Deployed downloads previously deployed data files so a fresh build can
// start from the state of the live site. Returns the number of files
// actually written.
func (c *Client) Deployed(ctx context.Context, opts DeployedOptions, filenames []string) (int, error) {
	if opts.DeployURL == "" {
		return 0, fmt.Errorf("deploy URL is required")
	}

	written := 0
	for _, filename := range filenames {
		data, err := c.get(ctx, opts.DeployURL+"/"+filename)
		if err != nil && opts.UpstreamDeployURL != "" {
			c.logger.Warn("deploy fetch failed, trying upstream", map[string]interface{}{
				"file": filename, "error": err.Error(),
			})
			data, err = c.get(ctx, opts.UpstreamDeployURL+"/"+filename)
		}
		if err != nil {
			if opts.AllowFailure {
				c.logger.Warn("skipping file, all sources failed", map[string]interface{}{
					"file": filename, "error": err.Error(),
				})
				continue
			}
			return written, fmt.Errorf("failed to fetch deployed file %s: %w", filename, err)
		}

		target := filepath.Join(opts.OutputDir, filepath.Base(filename))
		if err := os.WriteFile(target, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", target, err)
		}
		c.logger.Info("deployed file fetched", map[string]interface{}{"file": target})
		written++
	}
	return written, nil
}
