// Package openhub imports outside committer data from the OpenHub API:
// people who commit to the organisation's portfolio projects without being
// organisation members.
package openhub

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

// The OpenHub response nests the committer list four levels deep:
// response.result.outside_committers.contributor
type document struct {
	Response struct {
		Result struct {
			OutsideCommitters struct {
				Contributor []contributor `json:"contributor"`
			} `json:"outside_committers"`
		} `json:"result"`
	} `json:"response"`
}

type contributor struct {
	Name          string `json:"name"`
	Contributions struct {
		CommitCount  int    `json:"commit_count"`
		ProjectCount int    `json:"project_count"`
		LatestCommit string `json:"latest_commit"`
	} `json:"contributions_to_portfolio_projects"`
}

// Import fetches the OpenHub outside committers document from url and
// upserts every committer under org. Returns the number imported.
func Import(ctx context.Context, logger *logging.Logger, st store.Store, url, org string) (int, error) {
	if url == "" {
		return 0, fmt.Errorf("OpenHub URL is not configured")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch OpenHub data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	return ImportData(logger, st, body, org)
}

// ImportData parses an OpenHub document and upserts every outside committer
func ImportData(logger *logging.Logger, st store.Store, data []byte, org string) (int, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("failed to decode OpenHub document: %w", err)
	}

	imported := 0
	for _, c := range doc.Response.Result.OutsideCommitters.Contributor {
		if c.Name == "" {
			logger.Warn("skipping outside committer without name")
			continue
		}
		committer := &models.OutsideCommitter{
			Name:         c.Name,
			Org:          org,
			CommitCount:  c.Contributions.CommitCount,
			ProjectCount: c.Contributions.ProjectCount,
			LatestCommit: c.Contributions.LatestCommit,
		}
		if err := st.SaveOutsideCommitter(committer); err != nil {
			return imported, fmt.Errorf("failed to save outside committer %s: %w", c.Name, err)
		}
		logger.Debug("outside committer saved", map[string]interface{}{"name": c.Name})
		imported++
	}

	logger.Info("outside committers imported", map[string]interface{}{"count": imported})
	return imported, nil
}
