// Package gci fetches Google Code-in task data through the credentialed API
// and cleanses it for publication. The raw export contains mentor and
// student details that must never reach the public site, so fetching and
// cleansing are separate steps: the raw files only ever live in the private
// working directory.
package gci

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/li-boxuan/community/pkg/logging"
)

// Fields stripped from the task files before they can be published
var (
	privateTaskFields     = []string{"mentors", "private_metadata"}
	privateInstanceFields = []string{"student_display_name", "organization_private_notes"}
)

// Fetcher downloads GCI task data
type Fetcher struct {
	httpClient *http.Client
	logger     *logging.Logger
	token      string
	baseURL    string
}

// NewFetcher creates a fetcher. token is the GCI API credential; the caller
// is expected to refuse to run without one.
func NewFetcher(logger *logging.Logger, baseURL, token string) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		token:      token,
		baseURL:    baseURL,
	}
}

// FetchTaskData downloads the task and instance lists and writes them as
// YAML to tasksPath and instancesPath.
func (f *Fetcher) FetchTaskData(ctx context.Context, tasksPath, instancesPath string) error {
	if f.token == "" {
		return fmt.Errorf("GCI token is required to fetch task data")
	}

	if err := f.fetchInto(ctx, f.baseURL+"/tasks/", tasksPath); err != nil {
		return fmt.Errorf("failed to fetch tasks: %w", err)
	}
	if err := f.fetchInto(ctx, f.baseURL+"/instances/", instancesPath); err != nil {
		return fmt.Errorf("failed to fetch task instances: %w", err)
	}
	return nil
}

func (f *Fetcher) fetchInto(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	records, err := decodeRecords(body)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}

	f.logger.Info("task data fetched", map[string]interface{}{
		"file": path, "records": len(records),
	})
	return nil
}

// decodeRecords accepts either a bare JSON array or the API's paginated
// envelope {"results": [...]}.
func decodeRecords(body []byte) ([]map[string]interface{}, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var envelope struct {
		Results []map[string]interface{} `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode task data: %w", err)
	}
	return envelope.Results, nil
}

// Cleanse strips the private fields from the task and instance files,
// rewriting them in place. Missing files are an error: cleansing only makes
// sense right after a fetch.
func Cleanse(logger *logging.Logger, tasksPath, instancesPath string) error {
	if err := cleanseFile(logger, tasksPath, privateTaskFields); err != nil {
		return err
	}
	return cleanseFile(logger, instancesPath, privateInstanceFields)
}

func cleanseFile(logger *logging.Logger, path string, privateFields []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []map[string]interface{}
	if err := yaml.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	removed := 0
	for _, record := range records {
		for _, field := range privateFields {
			if _, ok := record[field]; ok {
				delete(record, field)
				removed++
			}
		}
	}

	out, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}

	logger.Info("task data cleansed", map[string]interface{}{
		"file": filepath.Base(path), "fields_removed": removed,
	})
	return nil
}
