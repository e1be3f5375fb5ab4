package gci

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/li-boxuan/community/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.ERROR, false)
}

func TestFetchTaskData(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/tasks/":
			w.Write([]byte(`[{"id": 1, "name": "Fix typo", "mentors": ["m@example.com"]}]`))
		case "/instances/":
			w.Write([]byte(`{"results": [{"id": 7, "status": "COMPLETED"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	tasksPath := filepath.Join(dir, "tasks.yaml")
	instancesPath := filepath.Join(dir, "instances.yaml")

	fetcher := NewFetcher(quietLogger(), srv.URL, "secret-token")
	if err := fetcher.FetchTaskData(context.Background(), tasksPath, instancesPath); err != nil {
		t.Fatalf("FetchTaskData failed: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("authorization header = %q", gotAuth)
	}

	// Bare array and paginated envelope both decode to records
	var tasks []map[string]interface{}
	data, err := os.ReadFile(tasksPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("tasks file is not valid YAML: %v", err)
	}
	if len(tasks) != 1 || tasks[0]["name"] != "Fix typo" {
		t.Errorf("tasks = %+v", tasks)
	}

	var instances []map[string]interface{}
	data, err = os.ReadFile(instancesPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := yaml.Unmarshal(data, &instances); err != nil {
		t.Fatalf("instances file is not valid YAML: %v", err)
	}
	if len(instances) != 1 || instances[0]["status"] != "COMPLETED" {
		t.Errorf("instances = %+v", instances)
	}

	// Raw exports must not be world readable
	info, err := os.Stat(tasksPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("tasks file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestFetchTaskDataRequiresToken(t *testing.T) {
	fetcher := NewFetcher(quietLogger(), "http://example.invalid", "")
	if err := fetcher.FetchTaskData(context.Background(), "t.yaml", "i.yaml"); err == nil {
		t.Fatal("expected an error without a token")
	}
}

func TestCleanse(t *testing.T) {
	dir := t.TempDir()
	tasksPath := filepath.Join(dir, "tasks.yaml")
	instancesPath := filepath.Join(dir, "instances.yaml")

	tasks := []map[string]interface{}{{
		"id":               1,
		"name":             "Fix typo",
		"mentors":          []string{"m@example.com"},
		"private_metadata": "internal",
	}}
	instances := []map[string]interface{}{{
		"id":                         7,
		"status":                     "COMPLETED",
		"student_display_name":       "A Student",
		"organization_private_notes": "notes",
	}}
	writeYAML(t, tasksPath, tasks)
	writeYAML(t, instancesPath, instances)

	if err := Cleanse(quietLogger(), tasksPath, instancesPath); err != nil {
		t.Fatalf("Cleanse failed: %v", err)
	}

	for _, tc := range []struct {
		path    string
		keep    string
		removed []string
	}{
		{tasksPath, "Fix typo", []string{"mentors", "private_metadata"}},
		{instancesPath, "COMPLETED", []string{"student_display_name", "organization_private_notes"}},
	} {
		data, err := os.ReadFile(tc.path)
		if err != nil {
			t.Fatal(err)
		}
		text := string(data)
		if !strings.Contains(text, tc.keep) {
			t.Errorf("%s lost public field %q:\n%s", filepath.Base(tc.path), tc.keep, text)
		}
		for _, field := range tc.removed {
			if strings.Contains(text, field) {
				t.Errorf("%s still contains private field %q:\n%s", filepath.Base(tc.path), field, text)
			}
		}
	}
}

func TestCleanseMissingFile(t *testing.T) {
	dir := t.TempDir()
	if err := Cleanse(quietLogger(), filepath.Join(dir, "t.yaml"), filepath.Join(dir, "i.yaml")); err == nil {
		t.Error("expected an error for missing files")
	}
}

func writeYAML(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := yaml.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}
