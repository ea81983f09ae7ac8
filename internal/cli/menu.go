package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mensabot/internal/mensa"
	"mensabot/internal/service"
)

func newMenuCmd() *cobra.Command {
	var (
		flagDate     string
		flagFuture   bool
		flagLocation string
	)
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Print the rendered menu for a day",
		Long: `Fetch and render the menu exactly as it would be sent to subscribers.

Defaults to today in TIMEZONE. Weekend dates are moved to the following Monday.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			key := cfg.MensaLocation
			if flagLocation != "" {
				key = flagLocation
			}
			canteen, err := mensa.LookupLocation(key)
			if err != nil {
				return err
			}

			menus := service.NewMenuService(mensa.NewClient(cfg.MensaBaseURL, canteen.ID, cfg.FetchTimeout), loc, log)
			day := menus.Today()
			if flagDate != "" {
				day, err = time.ParseInLocation("2006-01-02", flagDate, loc)
				if err != nil {
					return fmt.Errorf("invalid --date value: %w", err)
				}
			}

			text, err := menus.RequestMenu(cmd.Context(), day, flagFuture)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagDate, "date", "", "day to show (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&flagFuture, "future", false, "treat the date as an explicit future query (no weekend note)")
	cmd.Flags().StringVar(&flagLocation, "location", "", "canteen name or id (default MENSA_LOCATION)")
	return cmd
}
