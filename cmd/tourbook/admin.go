package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tourbook/internal/app"
	"tourbook/internal/config"
	"tourbook/internal/logging"
)

var adminFlags struct {
	username string
	email    string
	password string
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		repos, err := openRepositories(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = repos.close() }()

		authSvc := app.NewAuthService(repos.users, repos.sessions, repos.experiences, nil,
			app.AuthConfig{SessionTTL: cfg.SessionTTL}, log)
		user, err := authSvc.CreateAdmin(cmd.Context(), adminFlags.username, adminFlags.email, adminFlags.password)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		log.Info("administrator created", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
		return nil
	},
}

func init() {
	f := createAdminCmd.Flags()
	f.StringVar(&adminFlags.username, "username", "", "administrator username")
	f.StringVar(&adminFlags.email, "email", "", "administrator e-mail")
	f.StringVar(&adminFlags.password, "password", "", "administrator password")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}
