package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/li-boxuan/community/internal/distill"
)

// collectstaticCmd represents the collectstatic command
var collectstaticCmd = &cobra.Command{
	Use:   "collectstatic",
	Short: "Collect static assets into the site directory",
	RunE:  runCollectstatic,
}

// distillCmd represents the distill command
var distillCmd = &cobra.Command{
	Use:   "distill",
	Short: "Render the static site into the public directory",
	RunE:  runDistill,
}

func init() {
	rootCmd.AddCommand(collectstaticCmd)
	rootCmd.AddCommand(distillCmd)

	distillCmd.Flags().Bool("force", false, "remove the public directory before rendering")
}

func runCollectstatic(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	copied, err := distill.CollectStatic(logger, cfg.Dirs.Site, cfg.Static.Dirs)
	if err != nil {
		return err
	}
	fmt.Printf("Collected %d static file(s) into %s\n", copied, cfg.Dirs.Site)
	return nil
}

func runDistill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	logger := newLogger(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	d, err := distill.New(st, logger, cfg.Org)
	if err != nil {
		return err
	}
	if err := d.Render(cfg.Dirs.Public, cfg.Dirs.Site, force); err != nil {
		return err
	}
	fmt.Printf("Site distilled into %s\n", cfg.Dirs.Public)
	return nil
}
