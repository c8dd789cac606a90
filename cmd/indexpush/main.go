package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shohag/indexpush/internal/api"
	"github.com/shohag/indexpush/internal/config"
	"github.com/shohag/indexpush/internal/credential"
	"github.com/shohag/indexpush/internal/dispatch"
	"github.com/shohag/indexpush/internal/ledger"
	"github.com/shohag/indexpush/internal/queue"
	"github.com/shohag/indexpush/internal/storage"
	"github.com/shohag/indexpush/internal/submit"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "indexpush",
		Short: "indexpush — submit URL queues to the Google Indexing API across a key pool",
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(runCmd(&configPath))
	rootCmd.AddCommand(queueCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(statsCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drain the URL queue through the credential pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if dryRun {
				cfg.Submit.DryRun = true
			}

			log := setupLogger(cfg.Logging)

			// Credentials first: a missing or empty pool must abort before
			// any queue or ledger file is touched.
			creds, err := credential.Discover(cfg.Credentials.Dir)
			if err != nil {
				return err
			}

			store, results, badURLs, cleanup, err := openStores(cfg)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer cleanup()

			engine := dispatch.New(store, results, badURLs, clientFactory(cfg), cfg.Submit.Delay, log)

			var server *api.Server
			if cfg.Status.Enabled {
				server = api.NewServer(cfg.Status, engine.Progress(), log)
				go func() {
					if err := server.Start(); err != nil && err != http.ErrServerClosed {
						log.Error().Err(err).Msg("status listener error")
					}
				}()
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().
				Str("version", version).
				Int("credentials", len(creds)).
				Bool("dry_run", cfg.Submit.DryRun).
				Dur("delay", cfg.Submit.Delay).
				Msg("indexpush run starting")

			summary, runErr := engine.Run(ctx, creds)

			if server != nil {
				if err := server.Shutdown(5 * time.Second); err != nil {
					log.Error().Err(err).Msg("status listener shutdown error")
				}
			}

			for _, r := range summary.Reports {
				if r.Skipped {
					fmt.Printf("%s: skipped (unusable key)\n", r.Credential)
					continue
				}
				fmt.Printf("%s: submitted %d, remaining %d\n", r.Credential, r.Processed, r.Remaining)
			}
			fmt.Printf("total submitted: %d\n", summary.TotalProcessed)

			return runErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate submissions without network calls")
	return cmd
}

func queueCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the pending URL queue",
	}

	addCmd := &cobra.Command{
		Use:   "add <url>...",
		Short: "Append URLs to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := queueFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			urls, err := store.Load(ctx)
			if err != nil {
				return err
			}

			seen := make(map[string]struct{}, len(urls))
			for _, u := range urls {
				seen[u] = struct{}{}
			}

			added := 0
			for _, u := range args {
				if _, dup := seen[u]; dup {
					continue
				}
				seen[u] = struct{}{}
				urls = append(urls, u)
				added++
			}

			if err := store.Replace(ctx, urls); err != nil {
				return err
			}

			fmt.Printf("added %d, queue length %d\n", added, len(urls))
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the pending queue in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := queueFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			urls, err := store.Load(context.Background())
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				fmt.Println("Queue is empty.")
				return nil
			}
			for _, u := range urls {
				fmt.Println(u)
			}
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQLite schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := storage.NewSQLite(cfg.Storage.SQLite.Path)
			if err != nil {
				return fmt.Errorf("failed to open sqlite: %w", err)
			}
			defer db.Close()

			if err := db.Migrate(context.Background()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Println("migrations completed successfully")
			return nil
		},
	}
}

func statsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue and ledger counts from SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := storage.NewSQLite(cfg.Storage.SQLite.Path)
			if err != nil {
				return fmt.Errorf("failed to open sqlite: %w", err)
			}
			defer db.Close()

			if err := db.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			stats, err := db.GetStats(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			out, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("indexpush v%s\n", version)
		},
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func clientFactory(cfg *config.Config) dispatch.ClientFactory {
	if cfg.Submit.DryRun {
		return func(ctx context.Context, cred credential.Credential) (submit.Client, error) {
			return submit.DryRunClient{}, nil
		}
	}
	return func(ctx context.Context, cred credential.Credential) (submit.Client, error) {
		key, err := cred.Key()
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", cred.Path, err)
		}
		return submit.NewGoogleClient(ctx, key, cfg.Submit.Endpoint, cfg.Submit.Timeout)
	}
}

// openStores wires the queue store and both ledgers from config. The SQLite
// database is opened at most once and shared by whichever drivers ask for it.
func openStores(cfg *config.Config) (queue.Store, ledger.ResultLog, ledger.BadURLLog, func(), error) {
	var db *storage.SQLiteStorage
	var closers []func() error

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	openDB := func() (*storage.SQLiteStorage, error) {
		if db != nil {
			return db, nil
		}
		d, err := storage.NewSQLite(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := d.Migrate(context.Background()); err != nil {
			d.Close()
			return nil, err
		}
		db = d
		closers = append(closers, d.Close)
		return db, nil
	}

	var store queue.Store
	switch cfg.Storage.Queue.Driver {
	case "sqlite":
		d, err := openDB()
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
		store = d
	case "file":
		store = queue.NewFileStore(cfg.Storage.Queue.File)
	default:
		cleanup()
		return nil, nil, nil, nil, fmt.Errorf("unsupported queue driver: %s", cfg.Storage.Queue.Driver)
	}

	var results ledger.ResultLog
	switch cfg.Storage.Results.Driver {
	case "sqlite":
		d, err := openDB()
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
		results = d
	case "file":
		l, err := ledger.OpenFileResultLog(cfg.Storage.Results.File)
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
		closers = append(closers, l.Close)
		results = l
	default:
		cleanup()
		return nil, nil, nil, nil, fmt.Errorf("unsupported results driver: %s", cfg.Storage.Results.Driver)
	}

	var badURLs ledger.BadURLLog
	switch cfg.Storage.BadURLs.Driver {
	case "sqlite":
		d, err := openDB()
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
		badURLs = d
	case "file":
		l, err := ledger.OpenFileBadURLLog(cfg.Storage.BadURLs.File)
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
		closers = append(closers, l.Close)
		badURLs = l
	default:
		cleanup()
		return nil, nil, nil, nil, fmt.Errorf("unsupported bad-urls driver: %s", cfg.Storage.BadURLs.Driver)
	}

	return store, results, badURLs, cleanup, nil
}

func queueFromConfig(configPath string) (queue.Store, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch cfg.Storage.Queue.Driver {
	case "sqlite":
		db, err := storage.NewSQLite(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return db, func() { db.Close() }, nil
	case "file":
		return queue.NewFileStore(cfg.Storage.Queue.File), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported queue driver: %s", cfg.Storage.Queue.Driver)
	}
}
