package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/li-boxuan/community/internal/contrib"
	"github.com/li-boxuan/community/internal/openhub"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import auxiliary community datasets",
}

// importContributorsCmd represents the import contributors command
var importContributorsCmd = &cobra.Command{
	Use:   "contributors",
	Short: "Import the community contributors feed",
	RunE:  runImportContributors,
}

// importOpenHubCmd represents the import openhub command
var importOpenHubCmd = &cobra.Command{
	Use:   "openhub",
	Short: "Import OpenHub outside committers",
	RunE:  runImportOpenHub,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importContributorsCmd)
	importCmd.AddCommand(importOpenHubCmd)
}

func runImportContributors(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	imported, err := contrib.Import(cmd.Context(), logger, st, cfg.URLs.Contributors)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d contributor(s)\n", imported)
	return nil
}

func runImportOpenHub(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	imported, err := openhub.Import(cmd.Context(), logger, st, cfg.URLs.OpenHub, cfg.Org)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d outside committer(s)\n", imported)
	return nil
}
