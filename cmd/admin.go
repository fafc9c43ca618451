/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"

	"github.com/shopfront/apiserver/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var adminEmail string

// adminCmd groups account administration commands.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant the admin flag to an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, true)
	},
}

var adminDemoteCmd = &cobra.Command{
	Use:   "demote",
	Short: "Revoke the admin flag from an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, false)
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.PersistentFlags().StringVar(&adminEmail, "email", "", "email of the account")
	_ = adminCmd.MarkPersistentFlagRequired("email")
	adminCmd.AddCommand(adminPromoteCmd)
	adminCmd.AddCommand(adminDemoteCmd)
}

func setAdmin(cmd *cobra.Command, isAdmin bool) error {
	if adminEmail == "" {
		return errors.New("--email is required")
	}
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Admin changes never issue tokens, so no issuer is wired.
	userService, closer, err := server.NewUserService(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	summary, err := userService.SetAdmin(cmd.Context(), adminEmail, isAdmin)
	if err != nil {
		return err
	}
	logger.Info("admin flag updated",
		zap.String("user_id", summary.ID),
		zap.String("email", summary.Email),
		zap.Bool("is_admin", summary.IsAdmin))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
