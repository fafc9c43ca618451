/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopfront/apiserver/internal/server"
	"github.com/shopfront/apiserver/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// archiveCmd groups commands over the deleted user archive.
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the deleted user archive",
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Print the archived snapshot of a deleted user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, logger, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		archived, err := archive.Load(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return fmt.Errorf("no archived user %s", args[0])
			}
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(archived)
	},
}

var archivePurgeCmd = &cobra.Command{
	Use:   "purge <user-id>",
	Short: "Remove the archived snapshot of a deleted user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, logger, err := openArchive(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		if err := archive.Purge(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return fmt.Errorf("no archived user %s", args[0])
			}
			return err
		}
		logger.Info("archived user purged", zap.String("user_id", args[0]), zap.String("key", archive.Key(args[0])))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archivePurgeCmd)
}

func openArchive(cmd *cobra.Command) (*storage.UserArchive, *zap.Logger, error) {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return nil, nil, err
	}
	archive, err := server.OpenArchive(cmd.Context(), cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	if archive == nil {
		return nil, nil, errors.New("STORAGE_BACKEND is not set")
	}
	return archive, logger, nil
}
