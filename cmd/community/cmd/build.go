package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/li-boxuan/community/internal/config"
	"github.com/li-boxuan/community/internal/contrib"
	"github.com/li-boxuan/community/internal/distill"
	"github.com/li-boxuan/community/internal/fetch"
	"github.com/li-boxuan/community/internal/fixture"
	"github.com/li-boxuan/community/internal/gci"
	"github.com/li-boxuan/community/internal/metareview"
	"github.com/li-boxuan/community/internal/openhub"
	"github.com/li-boxuan/community/internal/pipeline"
	"github.com/li-boxuan/community/pkg/logging"
	"github.com/li-boxuan/community/pkg/store"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the full site build pipeline",
	Long: `Run the whole build: ensure the workspace directories, optionally
fetch external data, migrate the database, seed it from the meta-review
dataset if one exists, run the meta-review system, export the updated
dataset, collect static assets and distill the site into the public
directory. The first failing step aborts the build.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().String("source", "", "data source: skip, private or deployed (default from config)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if source, _ := cmd.Flags().GetString("source"); source != "" {
		cfg.Data.Source = source
	}

	// Build logs go to the private scratch dir alongside the run's other
	// artifacts, as well as stdout
	logger, err := logging.NewFileLogger(cfg.Dirs.Private, "build",
		logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
	if err != nil {
		return err
	}
	defer logger.Close()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := pipeline.NewRunner(logger, filepath.Join(cfg.Dirs.Private, "build_metrics.prom"))
	addBuildSteps(runner, cfg, st, logger)

	_, err = runner.Run(cmd.Context())
	return err
}

// addBuildSteps wires the pipeline in its fixed order
func addBuildSteps(runner *pipeline.Runner, cfg *config.Config, st store.Store, logger *logging.Logger) {
	runner.Add("ensure-directories", func(ctx context.Context) error {
		for _, dir := range []string{cfg.Dirs.Private, cfg.Dirs.Site, cfg.Dirs.Public} {
			// MkdirAll is a no-op for directories that already exist,
			// so re-runs do not fail here
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		return nil
	})

	switch cfg.Data.Source {
	case config.SourcePrivate:
		runner.Add("fetch-gci-task-data", func(ctx context.Context) error {
			fetcher := gci.NewFetcher(logger, cfg.GCI.TasksURL, cfg.GCI.Token)
			return fetcher.FetchTaskData(ctx, cfg.TasksPath(), cfg.InstancesPath())
		})
		runner.Add("cleanse-gci-task-data", func(ctx context.Context) error {
			return gci.Cleanse(logger, cfg.TasksPath(), cfg.InstancesPath())
		})
	case config.SourceDeployed:
		runner.Add("fetch-deployed-data", func(ctx context.Context) error {
			client := fetch.NewClient(logger)
			_, err := client.Deployed(ctx, fetch.DeployedOptions{
				DeployURL:         cfg.URLs.Deploy,
				UpstreamDeployURL: cfg.URLs.UpstreamDeploy,
				OutputDir:         filepath.Dir(cfg.Data.MetaReviewFile),
				AllowFailure:      true,
			}, cfg.Data.DeployFiles)
			return err
		})
	}

	runner.Add("migrate", func(ctx context.Context) error {
		applied, err := st.Migrate()
		if err != nil {
			return err
		}
		logger.Info("migrations applied", map[string]interface{}{"count": applied})
		return nil
	})

	if cfg.Data.Source == config.SourcePrivate {
		runner.Add("import-contributors", func(ctx context.Context) error {
			_, err := contrib.Import(ctx, logger, st, cfg.URLs.Contributors)
			return err
		})
		runner.Add("import-openhub", func(ctx context.Context) error {
			_, err := openhub.Import(ctx, logger, st, cfg.URLs.OpenHub, cfg.Org)
			return err
		})
	}

	runner.Add("load-fixture", func(ctx context.Context) error {
		if !fixture.Exists(cfg.Data.MetaReviewFile) {
			// The only runtime branch of the pipeline: a missing dataset
			// means a fresh start, not a failure
			logger.Info("meta review file does not exist, starting empty",
				map[string]interface{}{"file": cfg.Data.MetaReviewFile})
			return nil
		}
		snap, err := fixture.Load(cfg.Data.MetaReviewFile, st)
		if err != nil {
			return err
		}
		logger.Info("fixture loaded", map[string]interface{}{
			"participants": len(snap.Participants),
			"comments":     len(snap.Comments),
			"reactions":    len(snap.Reactions),
		})
		return nil
	})

	runner.Add("run-meta-review", func(ctx context.Context) error {
		return runMetaReview(ctx, cfg, st, logger)
	})

	runner.Add("export-fixture", func(ctx context.Context) error {
		snap, err := fixture.Dump(cfg.Data.MetaReviewFile, st)
		if err != nil {
			return err
		}
		logger.Info("fixture exported", map[string]interface{}{
			"file": cfg.Data.MetaReviewFile, "participants": len(snap.Participants),
		})
		return nil
	})

	runner.Add("collect-static", func(ctx context.Context) error {
		_, err := distill.CollectStatic(logger, cfg.Dirs.Site, cfg.Static.Dirs)
		return err
	})

	runner.Add("distill", func(ctx context.Context) error {
		d, err := distill.New(st, logger, cfg.Org)
		if err != nil {
			return err
		}
		return d.Render(cfg.Dirs.Public, cfg.Dirs.Site, true)
	})
}

// runMetaReview fetches (or reads) the issues document and runs one
// iteration of the scoring system.
func runMetaReview(ctx context.Context, cfg *config.Config, st store.Store, logger *logging.Logger) error {
	var data []byte
	var err error

	if cfg.Review.IssuesFile != "" {
		data, err = os.ReadFile(cfg.Review.IssuesFile)
		if err != nil {
			return fmt.Errorf("failed to read issues file: %w", err)
		}
	} else {
		client := fetch.NewClient(logger)
		data, err = client.Issues(ctx, cfg.URLs.Issues, cfg.BackupIssuesURL())
		if err != nil {
			return err
		}
	}

	doc, err := metareview.ParseDocument(data)
	if err != nil {
		return err
	}

	handler := metareview.NewHandler(st, logger, doc, time.Now().UTC())
	return handler.Run()
}
