package main

import (
	"errors"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/ce-fello/bug-tracker-service/src/internal/store"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().String("migrations-dir", "", "migrations directory (overrides MIGRATIONS_DIR)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrations(a.cfg.DatabaseURL, a.cfg.MigrationsDir, false, a.logger.Sugar())
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrations(a.cfg.DatabaseURL, a.cfg.MigrationsDir, true, a.logger.Sugar())
			},
		},
	)
	return cmd
}

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator tasks that bypass the HTTP API",
	}

	var name, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an ADMIN account",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := a.openService()
			if err != nil {
				return err
			}
			defer closeDB()

			u, err := svc.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			a.ui.Success("created admin %s <%s>", u.Name, u.Email)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "initial password")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	var role string
	var includeAdmins bool
	users := &cobra.Command{
		Use:   "users",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := a.openService()
			if err != nil {
				return err
			}
			defer closeDB()

			page, err := svc.ListUsers(cmd.Context(), store.UserFilter{
				Role:          model.Role(role),
				IncludeAdmins: includeAdmins,
				Pagination:    model.NewPagination(1, 100, 100),
			})
			if err != nil {
				return err
			}
			return a.ui.RenderUsers(page)
		},
	}
	users.Flags().StringVar(&role, "role", "", "only this role")
	users.Flags().BoolVar(&includeAdmins, "include-admins", true, "include ADMIN accounts")

	cmd.AddCommand(create, users)
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var email, action, projectID, query string
	var page, limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit feed of a developer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if action != "" && !model.HistoryAction(action).Valid() {
				return errors.New("action must be status_change or unassign")
			}
			svc, closeDB, err := a.openService()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			dev, err := svc.UserByEmail(ctx, email)
			if err != nil {
				return err
			}
			res, err := svc.QueryHistory(ctx, dev.ID, model.HistoryQuery{
				Action:     model.HistoryAction(action),
				ProjectID:  projectID,
				Q:          query,
				Pagination: model.NewPagination(page, limit, 20),
			})
			if err != nil {
				return err
			}
			return a.ui.RenderHistory(res)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "developer email")
	cmd.Flags().StringVar(&action, "action", "", "status_change or unassign")
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVarP(&query, "query", "q", "", "issue title search")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "entries per page")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
