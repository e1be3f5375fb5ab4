// Package contrib imports the community contributors feed into the store.
package contrib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/li-boxuan/community/pkg/logging"
	"github.com/li-boxuan/community/pkg/models"
	"github.com/li-boxuan/community/pkg/store"
)

// Import fetches the contributors JSON feed from url and upserts every
// entry. Returns the number of contributors imported.
func Import(ctx context.Context, logger *logging.Logger, st store.Store, url string) (int, error) {
	if url == "" {
		return 0, fmt.Errorf("contributors URL is not configured")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch contributors: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	return ImportData(logger, st, body)
}

// ImportData parses a contributors document and upserts every entry.
// Contributors without a login are skipped, they cannot be keyed.
func ImportData(logger *logging.Logger, st store.Store, data []byte) (int, error) {
	var contributors []models.Contributor
	if err := json.Unmarshal(data, &contributors); err != nil {
		return 0, fmt.Errorf("failed to decode contributors: %w", err)
	}

	imported := 0
	for i := range contributors {
		c := &contributors[i]
		if c.Login == "" {
			logger.Warn("skipping contributor without login")
			continue
		}
		if err := st.SaveContributor(c); err != nil {
			return imported, fmt.Errorf("failed to save contributor %s: %w", c.Login, err)
		}
		imported++
	}

	logger.Info("contributors imported", map[string]interface{}{"count": imported})
	return imported, nil
}
