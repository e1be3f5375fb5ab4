package openhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/li-boxuan/community/pkg/logging"
	"github.com/li-boxuan/community/pkg/store"
)

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.ERROR, false)
}

const sampleDocument = `{
	"response": {
		"result": {
			"outside_committers": {
				"contributor": [
					{
						"name": "Jane Hacker",
						"contributions_to_portfolio_projects": {
							"commit_count": 120,
							"project_count": 3,
							"latest_commit": "2019-05-20"
						}
					},
					{"name": ""}
				]
			}
		}
	}
}`

func TestImportData(t *testing.T) {
	st := store.NewMemoryStore()
	imported, err := ImportData(quietLogger(), st, []byte(sampleDocument), "coala")
	if err != nil {
		t.Fatalf("ImportData failed: %v", err)
	}
	if imported != 1 {
		t.Errorf("imported = %d, want 1 (nameless entry skipped)", imported)
	}

	all, err := st.GetAllOutsideCommitters()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("stored = %d committers, want 1", len(all))
	}
	c := all[0]
	if c.Name != "Jane Hacker" || c.Org != "coala" {
		t.Errorf("committer = %+v", c)
	}
	if c.CommitCount != 120 || c.ProjectCount != 3 || c.LatestCommit != "2019-05-20" {
		t.Errorf("contribution stats = %+v", c)
	}
}

func TestImportDataInvalid(t *testing.T) {
	if _, err := ImportData(quietLogger(), store.NewMemoryStore(), []byte("nope"), "coala"); err == nil {
		t.Error("expected an error for malformed input")
	}
}

func TestImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDocument))
	}))
	defer srv.Close()

	imported, err := Import(context.Background(), quietLogger(), store.NewMemoryStore(), srv.URL, "coala")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported != 1 {
		t.Errorf("imported = %d, want 1", imported)
	}
}

func TestImportEmptyURL(t *testing.T) {
	if _, err := Import(context.Background(), quietLogger(), store.NewMemoryStore(), "", "coala"); err == nil {
		t.Error("expected an error for an unconfigured URL")
	}
}
