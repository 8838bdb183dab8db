package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"otakuwave/core/auth"
	"otakuwave/db"
	"otakuwave/model"
	"otakuwave/repository"

	"github.com/spf13/cobra"
)

var (
	adminUsername string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account, or reset its password if it exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminUsername == "" || adminPassword == "" {
			return errors.New("--username and --password are required")
		}

		if err := db.ConnectGormDB(cfg); err != nil {
			return err
		}
		defer db.CloseGormDB()
		if err := db.AutoMigrateModels(); err != nil {
			return err
		}

		hash, err := auth.HashPassword(adminPassword)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		repo := repository.NewGormAdminRepository(db.GormDB)
		existing, err := repo.GetByUsername(ctx, adminUsername)
		if err != nil {
			return fmt.Errorf("failed to look up admin: %w", err)
		}
		if existing != nil {
			if err := repo.UpdatePassword(ctx, existing.ID, hash); err != nil {
				return fmt.Errorf("failed to update password: %w", err)
			}
			fmt.Printf("Password updated for admin %q\n", adminUsername)
			return nil
		}

		admin := &model.Admin{Username: adminUsername, PasswordHash: hash}
		if err := repo.Create(ctx, admin); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		fmt.Printf("Created admin %q (id %d)\n", admin.Username, admin.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringVarP(&adminUsername, "username", "u", "", "admin username")
	adminCreateCmd.Flags().StringVarP(&adminPassword, "password", "p", "", "admin password")
}
