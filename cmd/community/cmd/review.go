package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/li-boxuan/community/internal/distill"
)

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run and inspect the meta-review system",
}

// reviewRunCmd represents the review run command
var reviewRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one meta-review iteration",
	Long: `Fetch the gh-board issues document (or read a local copy), merge
it with the stored history and recompute scores, rankings and weight
factors. The store must be migrated first.`,
	RunE: runReviewRun,
}

// reviewRankingsCmd represents the review rankings command
var reviewRankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Show the current meta-review standings",
	RunE:  runReviewRankings,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewRunCmd)
	reviewCmd.AddCommand(reviewRankingsCmd)

	reviewRunCmd.Flags().String("issues-file", "", "read the issues document from a local file instead of fetching it")
	reviewRankingsCmd.Flags().Int("limit", 0, "show only the top N participants")
}

func runReviewRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if issuesFile, _ := cmd.Flags().GetString("issues-file"); issuesFile != "" {
		cfg.Review.IssuesFile = issuesFile
	}

	logger := newLogger(cfg)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return runMetaReview(cmd.Context(), cfg, st, logger)
}

func runReviewRankings(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ranked, err := distill.Rankings(st)
	if err != nil {
		return err
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(ranked) == 0 {
		fmt.Println("No ranked participants yet. Run `community review run` first.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Rank", "Login", "Score", "Trend", "Pos", "Neg", "Weight")

	for _, p := range ranked {
		trend := fmt.Sprintf("%+d", p.Trend)
		if p.Trend == 0 {
			trend = "-"
		}
		table.Append([]string{
			fmt.Sprintf("%d", p.Rank),
			p.Login,
			fmt.Sprintf("%.3f", p.Score),
			trend,
			fmt.Sprintf("%d", p.PosIn),
			fmt.Sprintf("%d", p.NegIn),
			fmt.Sprintf("%.3f", p.WeightFactor),
		})
	}

	table.Render()
	return nil
}
