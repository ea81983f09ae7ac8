package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mensabot/internal/app"
	"mensabot/internal/config"
	"mensabot/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// NewRootCmd builds the command tree. Without a subcommand the bot runs.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mensabot",
		Short:         "Telegram bot for the daily Studentenwerk Leipzig canteen menu",
		Long:          "mensabot sends subscribers the canteen menu every weekday at the time they picked.",
		RunE:          runBot,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the bot (default)",
			RunE:  runBot,
		},
		newMenuCmd(),
		newResetDBCmd(),
		newLocationsCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mensabot %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if errors.Is(err, app.ErrAlreadyRunning) {
		log.Info("another instance holds the lock, exiting", zap.String("lock", cfg.LockFile))
		return nil
	}
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
