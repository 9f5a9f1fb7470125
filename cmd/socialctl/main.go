// Command socialctl runs maintenance tasks against the socialhub database:
// applying migrations and filling a development database with fake data.
// It reads the same config.yml and environment as the API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/socialhub/internal/auth"
	"github.com/sakif/socialhub/internal/config"
	"github.com/sakif/socialhub/internal/repository/sqlstore"
	"github.com/sakif/socialhub/internal/seed"
	"github.com/sakif/socialhub/internal/service"
)

var (
	configDir string
	seedOpts  seed.Options
)

var rootCmd = &cobra.Command{
	Use:   "socialctl",
	Short: "Maintenance commands for the socialhub API",
	Long: `socialctl manages the socialhub database.

It uses the same configuration as the server (config.yml plus environment
variables such as DB_DRIVER and DB_DSN).`,
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", cfg.DBDriver)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users, posts and activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.IsProduction() {
			return fmt.Errorf("refusing to seed a production database")
		}

		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			return err
		}
		svc := service.New(store, auth.NewPasswordServiceWithCost(cfg.BcryptCost), tokens, logger)

		sum, err := seed.New(svc, logger).Run(cmd.Context(), seedOpts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %s (password for every account: %s)\n", sum, seed.Password)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.yml (default: working directory)")

	seedCmd.Flags().IntVar(&seedOpts.Users, "users", 20, "number of users to create")
	seedCmd.Flags().IntVar(&seedOpts.Posts, "posts", 100, "number of posts to create")
	seedCmd.Flags().IntVar(&seedOpts.FollowsPerUser, "follows", 5, "follows per user")
	seedCmd.Flags().IntVar(&seedOpts.LikesPerPost, "likes", 3, "likes per post")
	seedCmd.Flags().IntVar(&seedOpts.CommentsPerPost, "comments", 2, "comments per post")
	seedCmd.Flags().Int64Var(&seedOpts.Seed, "seed", 0, "random seed (0 picks one)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openStore connects and runs migrations; sqlstore.Open always migrates.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlstore.DB, error) {
	return sqlstore.Open(ctx, sqlstore.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}, logger)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
