package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/li-boxuan/community/internal/fetch"
	"github.com/li-boxuan/community/internal/gci"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch external datasets",
}

// fetchDeployedCmd represents the fetch deployed command
var fetchDeployedCmd = &cobra.Command{
	Use:   "deployed [file...]",
	Short: "Fetch previously deployed data files",
	Long: `Download data files from the live deployment so a fresh build can
start from the deployed state. Files failing on the deploy URL are retried
against the upstream deploy URL when one is configured.`,
	RunE: runFetchDeployed,
}

// fetchGCICmd represents the fetch gci command
var fetchGCICmd = &cobra.Command{
	Use:   "gci",
	Short: "Fetch and cleanse GCI task data",
	Long: `Download the Google Code-in task and instance lists through the
credentialed API and strip the private fields. Requires the GCI_TOKEN
environment variable.`,
	RunE: runFetchGCI,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.AddCommand(fetchDeployedCmd)
	fetchCmd.AddCommand(fetchGCICmd)

	fetchDeployedCmd.Flags().String("output-dir", ".", "directory receiving the downloaded files")
	fetchDeployedCmd.Flags().Bool("allow-failure", false, "skip files that fail on every source")
	fetchGCICmd.Flags().Bool("skip-cleanse", false, "keep the raw files (private fields included)")
}

func runFetchDeployed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	outputDir, _ := cmd.Flags().GetString("output-dir")
	allowFailure, _ := cmd.Flags().GetBool("allow-failure")

	files := args
	if len(files) == 0 {
		files = cfg.Data.DeployFiles
	}

	logger := newLogger(cfg)
	client := fetch.NewClient(logger)
	written, err := client.Deployed(cmd.Context(), fetch.DeployedOptions{
		DeployURL:         cfg.URLs.Deploy,
		UpstreamDeployURL: cfg.URLs.UpstreamDeploy,
		OutputDir:         outputDir,
		AllowFailure:      allowFailure,
	}, files)
	if err != nil {
		return err
	}

	fmt.Printf("Fetched %d of %d file(s)\n", written, len(files))
	return nil
}

func runFetchGCI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	skipCleanse, _ := cmd.Flags().GetBool("skip-cleanse")

	if cfg.GCI.Token == "" {
		return fmt.Errorf("GCI_TOKEN is not set; task data requires the credentialed API")
	}

	if err := os.MkdirAll(cfg.Dirs.Private, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", cfg.Dirs.Private, err)
	}

	logger := newLogger(cfg)
	fetcher := gci.NewFetcher(logger, cfg.GCI.TasksURL, cfg.GCI.Token)
	if err := fetcher.FetchTaskData(cmd.Context(), cfg.TasksPath(), cfg.InstancesPath()); err != nil {
		return err
	}

	if !skipCleanse {
		if err := gci.Cleanse(logger, cfg.TasksPath(), cfg.InstancesPath()); err != nil {
			return err
		}
	}

	fmt.Printf("Task data written to %s and %s\n", cfg.TasksPath(), cfg.InstancesPath())
	return nil
}
