package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/condmatch/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending catalog migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "show migration status without applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	database, err := db.Open(e.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if statusOnly, _ := cmd.Flags().GetBool("status"); statusOnly {
		statuses, err := db.MigrateStatus(ctx, database)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range statuses {
			if s.Applied {
				fmt.Fprintf(out, "%s\tapplied %s (%dms)\n", s.ID, s.AppliedAt.Format("2006-01-02 15:04:05"), s.ExecutionMs)
			} else {
				fmt.Fprintf(out, "%s\tpending\n", s.ID)
			}
		}
		return nil
	}

	applied, err := db.MigrateUp(ctx, database, e.logger)
	if err != nil {
		return err
	}
	e.logger.Info("migrations complete", zap.Int("applied", len(applied)))
	return nil
}
