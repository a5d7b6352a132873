package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/delogo/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// needsDB marks commands that open the database before running.
const needsDB = "needs-db"

var (
	// DB is the database connection shared by subcommands. It is nil unless
	// the running command needs it.
	DB *store.Store
	// dbURL is the connection string
	dbURL   string
	verbose bool
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "delogo",
	Short:   "Simple TV station logo remover",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logrus.SetOutput(os.Stderr)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}

		if cmd.Annotations[needsDB] != "true" {
			return nil
		}
		return openDB(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// The command context may already be cancelled (Ctrl+C), Close still has to run.
			DB.Close(context.Background())
		}
	},
}

// connString resolves the database URL from the flag, the environment, or
// the local default.
func connString() string {
	if dbURL != "" {
		return dbURL
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := os.Getenv("POSTGRES_DB")
		port := os.Getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}
	return "postgres://localhost:5432/delogo"
}

func openDB(ctx context.Context) error {
	if DB != nil {
		return nil
	}
	var err error
	DB, err = store.New(ctx, connString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/delogo)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
