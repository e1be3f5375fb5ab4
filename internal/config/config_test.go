package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Org != "coala" {
		t.Errorf("org = %q, want coala", cfg.Org)
	}
	if cfg.Data.Source != SourceSkip {
		t.Errorf("data source = %q, want skip", cfg.Data.Source)
	}
	if cfg.Dirs.Private != "private" || cfg.Dirs.Site != "_site" || cfg.Dirs.Public != "public" {
		t.Errorf("dirs = %+v", cfg.Dirs)
	}
	if cfg.Store.Type != "sqlite" || cfg.Store.Path != "community.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if len(cfg.Data.DeployFiles) != 1 || cfg.Data.DeployFiles[0] != "meta_review.json" {
		t.Errorf("deploy files = %v", cfg.Data.DeployFiles)
	}
}

func TestLoadDerivesURLsFromOrg(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("org", "example")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.URLs.Issues != "http://example.github.io/gh-board/issues.json" {
		t.Errorf("issues url = %q", cfg.URLs.Issues)
	}
	if cfg.URLs.Deploy != "https://example.github.io" {
		t.Errorf("deploy url = %q", cfg.URLs.Deploy)
	}
	if cfg.BackupIssuesURL() != "https://example-gh-board.netlify.com/issues.json" {
		t.Errorf("backup url = %q", cfg.BackupIssuesURL())
	}
}

func TestLoadKeepsExplicitURLs(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("urls.issues", "http://localhost:8080/issues.json")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.URLs.Issues != "http://localhost:8080/issues.json" {
		t.Errorf("issues url = %q, want the explicit setting", cfg.URLs.Issues)
	}
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("data.source", "dubious")

	if _, err := Load(v); err == nil {
		t.Error("expected an error for an unknown data source")
	}
}
