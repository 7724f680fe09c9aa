package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/pkg/config"
	"github.com/noah-isme/college-staff-api/pkg/database"
	"github.com/noah-isme/college-staff-api/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "staffctl",
		Short:         "Operational tasks for the college staff API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			l, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			e.cfg, e.logger = cfg, l
			return nil
		},
	}
	root.AddCommand(
		newMigrateCmd(e),
		newHashPasswordCmd(),
		newSeedCmd(e),
		newTOTPCmd(e),
	)
	return root
}

func (e *env) openDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := database.NewPostgres(ctx, e.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.ApplySchema(cmd.Context(), db); err != nil {
				return err
			}
			e.logger.Info("schema applied")
			return nil
		},
	}
}
