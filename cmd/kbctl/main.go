package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"knowledgestack/internal/app"
	"knowledgestack/internal/config"
	"knowledgestack/internal/repository/postgres"
	"knowledgestack/internal/search"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// env is opened once per command run
type env struct {
	cfg   *config.Config
	pool  *pgxpool.Pool
	meili *search.Meili
	stack *app.App
}

func (e *env) open(ctx context.Context) error {
	_ = godotenv.Load()
	e.cfg = config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	pool, err := postgres.CreateConnectionPool(ctx, e.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	e.pool = pool

	opts := app.Options{}
	if e.cfg.MeiliURL != "" {
		e.meili = search.NewMeili(e.cfg.MeiliURL, e.cfg.MeiliAPIKey, logger)
		opts.Meili = e.meili
	}

	e.stack = app.New(pool, postgres.NewTableNames(e.cfg.TablePrefix), opts, logger)
	return nil
}

func (e *env) close() {
	if e.meili != nil {
		e.meili.Close()
		e.meili = nil
	}
	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
}

func main() {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:   "kbctl",
		Short: "Administer a Knowledge Stack deployment",
		Long: `kbctl creates organizations and users, grants roles and rebuilds the
search index against the database named by DATABASE_URL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return e.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
	}

	rootCmd.AddCommand(newOrgCmd(e))
	rootCmd.AddCommand(newUserCmd(e))
	rootCmd.AddCommand(newMemberCmd(e))
	rootCmd.AddCommand(newSearchCmd(e))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		// Cobra prints the error
		e.close()
		os.Exit(1)
	}
}
