package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  `Bring the store schema to the latest version. Already-applied migrations are skipped.`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	applied, err := st.Migrate()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, err := st.SchemaVersion()
	if err != nil {
		return err
	}

	fmt.Printf("Applied %d migration(s), schema version %d\n", applied, version)
	return nil
}
