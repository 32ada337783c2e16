package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/auth"
	"github.com/ce-fello/bug-tracker-service/src/internal/cli"
	"github.com/ce-fello/bug-tracker-service/src/internal/config"
	"github.com/ce-fello/bug-tracker-service/src/internal/service"
	"github.com/ce-fello/bug-tracker-service/src/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once config is loaded.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	ui     *cli.UI
}

func newRootCmd() *cobra.Command {
	a := &app{ui: cli.New()}
	var configFile string

	root := &cobra.Command{
		Use:           "bugtracker",
		Short:         "Role-based bug tracker API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(configFile)
			if err != nil {
				return err
			}
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			if a.cfg, err = config.Load(v); err != nil {
				return err
			}
			a.logger, err = newLogger(a.cfg.LogLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")

	serve := newServeCmd(a)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newMigrateCmd(a), newAdminCmd(a), newHistoryCmd(a))
	return root
}

// bindFlags exposes command flags as config keys, so --migrations-dir
// overrides migrations_dir.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		}
	})
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

// openService connects to the database and builds the service layer. The
// returned close func releases the connection.
func (a *app) openService() (*service.Service, func(), error) {
	sugar := a.logger.Sugar()
	db, err := connectDBWithRetry(a.cfg.DatabaseURL, 15, 2*time.Second, sugar)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			sugar.Warnf("failed to close db: %v", err)
		}
	}

	repos := store.NewRepositories(db, a.logger)
	svc := service.NewService(repos, auth.NewTokens(a.cfg.JWTSecret, a.cfg.JWTTTL), a.logger)
	return svc, closeDB, nil
}
