// Command seed fills the database with demo users, posts and comments.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newSeedCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newSeedCommand() *cobra.Command {
	opts := seed.Options{}

	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Fill the database with demo data",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to read .env: %v", err)
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer func() { _ = sqlDB.Close() }()
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, err := seed.NewSeeder(db).Run(ctx, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %d users, %d posts, %d comments\n", len(res.Users), len(res.Posts), res.Comments)
			if len(res.Users) > 0 {
				fmt.Fprintf(out, "Sign in as %s with password %s\n", res.Users[0].Email, seed.DefaultPassword)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Users, "users", 10, "number of users to create")
	cmd.Flags().IntVar(&opts.Posts, "posts", 30, "number of posts to create")
	cmd.Flags().IntVar(&opts.Comments, "comments", 120, "number of comments to create")
	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "delete existing users, posts and comments first")
	cmd.Flags().Int64Var(&opts.RandSeed, "rand-seed", 0, "seed for reproducible content (0 uses the clock)")

	return cmd
}
