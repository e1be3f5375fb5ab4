package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Data source modes. The original deploy script toggled these branches by
// commenting lines in and out; here they are an explicit setting.
const (
	SourceSkip     = "skip"     // no external fetch (default)
	SourcePrivate  = "private"  // fetch and cleanse GCI task data (needs credential)
	SourceDeployed = "deployed" // fetch previously deployed public data
)

// Config holds every tunable of the build pipeline. All file locations the
// pipeline touches are settings, not literals.
type Config struct {
	Org string `mapstructure:"org"`

	Dirs struct {
		Private string `mapstructure:"private"`
		Site    string `mapstructure:"site"`
		Public  string `mapstructure:"public"`
	} `mapstructure:"dirs"`

	Data struct {
		Source         string   `mapstructure:"source"`
		MetaReviewFile string   `mapstructure:"meta_review_file"`
		TasksFile      string   `mapstructure:"tasks_file"`
		InstancesFile  string   `mapstructure:"instances_file"`
		DeployFiles    []string `mapstructure:"deploy_files"`
	} `mapstructure:"data"`

	URLs struct {
		Issues         string `mapstructure:"issues"`
		Deploy         string `mapstructure:"deploy"`
		UpstreamDeploy string `mapstructure:"upstream_deploy"`
		Contributors   string `mapstructure:"contributors"`
		OpenHub        string `mapstructure:"openhub"`
	} `mapstructure:"urls"`

	Store struct {
		Type string `mapstructure:"type"`
		DSN  string `mapstructure:"dsn"`
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`

	Review struct {
		// IssuesFile overrides the HTTP fetch with a local issues.json
		IssuesFile string `mapstructure:"issues_file"`
	} `mapstructure:"review"`

	Static struct {
		Dirs []string `mapstructure:"dirs"`
	} `mapstructure:"static"`

	GCI struct {
		Token    string `mapstructure:"token"`
		TasksURL string `mapstructure:"tasks_url"`
	} `mapstructure:"gci"`

	Log struct {
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"log"`
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("org", "coala")

	v.SetDefault("dirs.private", "private")
	v.SetDefault("dirs.site", "_site")
	v.SetDefault("dirs.public", "public")

	v.SetDefault("data.source", SourceSkip)
	v.SetDefault("data.meta_review_file", "meta_review.json")
	v.SetDefault("data.tasks_file", "tasks.yaml")
	v.SetDefault("data.instances_file", "instances.yaml")
	v.SetDefault("data.deploy_files", []string{"meta_review.json"})

	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.path", "community.db")

	v.SetDefault("static.dirs", []string{"static"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Load unmarshals v into a Config and fills the URL defaults that depend on
// the organisation name.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.URLs.Issues == "" {
		cfg.URLs.Issues = fmt.Sprintf("http://%s.github.io/gh-board/issues.json", cfg.Org)
	}
	if cfg.URLs.Deploy == "" {
		cfg.URLs.Deploy = fmt.Sprintf("https://%s.github.io", cfg.Org)
	}

	switch cfg.Data.Source {
	case SourceSkip, SourcePrivate, SourceDeployed:
	default:
		return nil, fmt.Errorf("invalid data.source %q (want %s, %s or %s)",
			cfg.Data.Source, SourceSkip, SourcePrivate, SourceDeployed)
	}

	return &cfg, nil
}

// BackupIssuesURL returns the fallback location of the issues document,
// served from netlify when the github.io mirror times out.
func (c *Config) BackupIssuesURL() string {
	return fmt.Sprintf("https://%s-gh-board.netlify.com/issues.json", c.Org)
}

// TasksPath is the GCI tasks file inside the private directory. The raw
// export holds mentor details, it must never land outside private.
func (c *Config) TasksPath() string {
	return filepath.Join(c.Dirs.Private, c.Data.TasksFile)
}

// InstancesPath is the GCI task instances file inside the private directory
func (c *Config) InstancesPath() string {
	return filepath.Join(c.Dirs.Private, c.Data.InstancesFile)
}
