package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/showconnect/esign/internal/server"
	"github.com/showconnect/esign/modules/esign/infrastructure/persistence"
	"github.com/showconnect/esign/pkg/configuration"
)

func main() {
	root := &cobra.Command{
		Use:           "esign",
		Short:         "Electronic signature workflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		configuration.Use().Logger().WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the expiry sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configuration.Use()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			return srv.Start(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configuration.Use()
			dsn := cfg.Database.ConnectionString()
			if down {
				return persistence.MigrateDown(cmd.Context(), dsn)
			}
			return persistence.Migrate(cmd.Context(), dsn)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	return cmd
}
