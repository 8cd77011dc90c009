/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/attendance-hq/apiserver/config"
	"github.com/attendance-hq/apiserver/internal/db"
	"github.com/attendance-hq/apiserver/internal/server"
	"github.com/attendance-hq/apiserver/internal/services"
	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var seedFile string

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the accounts and employees listed in a seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		path := seedFile
		if path == "" {
			path = cfg.SeedFile
		}
		if path == "" {
			return errors.New("seed file required, pass --file or set SEED_FILE")
		}

		seed, err := services.LoadSeedFile(path)
		if err != nil {
			return err
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer conn.Close()

		users := store.NewUserRepository(conn)
		employees := store.NewEmployeeRepository(conn)
		hasher := services.NewUserService(users, employees)
		seeder := services.NewSeeder(users, employees, hasher.HashPassword, server.NewLogger(cfg))
		return seeder.Apply(cmd.Context(), seed)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "path to the YAML seed file")
}
