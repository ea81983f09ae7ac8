package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mensabot/internal/logger"
	"mensabot/internal/mensa"
	"mensabot/internal/repository"
)

func newResetDBCmd() *cobra.Command {
	var flagYes bool
	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Drop and recreate the subscriptions table",
		Long: `Delete every stored subscription and recreate an empty table.

Stop the bot first: running jobs are not affected until the next restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !flagYes {
				return errors.New("refusing to reset without --yes")
			}
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := repository.NewDB(cfg.DatabaseURL, logger.StdLog(log, "gorm"))
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := repository.NewSubscriptionRepository(db).Reset(cmd.Context()); err != nil {
				return err
			}
			log.Info("subscriptions table reset", zap.String("db", cfg.DatabaseURL))
			fmt.Fprintln(cmd.OutOrStdout(), "Subscriptions table reset.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagYes, "yes", false, "confirm deleting all subscriptions")
	return cmd
}

func newLocationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List known canteens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locs, err := mensa.Locations()
			if err != nil {
				return err
			}
			for _, loc := range locs {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n", loc.ID, loc.Name)
			}
			return nil
		},
	}
}
