// Command addrfmt formats postal addresses and manages format definitions
// from the command line.
package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/CTAG07/Addressline/pkg/addressing"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "addrfmt",
		Short:   "Format postal addresses for inline display",
		Version: version,
	}
	rootCmd.PersistentFlags().String("db", "", "SQLite database holding format overrides")
	rootCmd.PersistentFlags().String("lang", "en", "language of country names")
	rootCmd.PersistentFlags().Bool("verbose", false, "log debug output to stderr")

	rootCmd.AddCommand(newFormatCmd())
	rootCmd.AddCommand(newFormatsCmd())
	rootCmd.AddCommand(newImportCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// commandLogger logs to stderr, at debug level with --verbose.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openStore opens the database named by --db and prepares the format store.
// It returns a nil store when no database was given.
func openStore(cmd *cobra.Command, logger *slog.Logger) (*addressing.Store, io.Closer, error) {
	path, err := cmd.Root().PersistentFlags().GetString("db")
	if err != nil || path == "" {
		return nil, nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = addressing.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup format schema: %w", err)
	}
	store, err := addressing.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	store.SetLogger(logger)
	return store, closerFunc(func() error {
		store.Close()
		return db.Close()
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// loadFormats returns the embedded table with any stored overrides applied.
func loadFormats(cmd *cobra.Command, logger *slog.Logger) (*addressing.Repository, *addressing.Overlay, error) {
	base, err := addressing.DefaultRepository()
	if err != nil {
		return nil, nil, err
	}
	overlay := addressing.NewOverlay(base)

	store, closer, err := openStore(cmd, logger)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return base, overlay, nil
	}
	defer func() { _ = closer.Close() }()
	if err = overlay.LoadFromStore(cmd.Context(), store); err != nil {
		return nil, nil, fmt.Errorf("failed to load format overrides: %w", err)
	}
	logger.Debug("Loaded format overrides", "count", len(overlay.Overridden()))
	return base, overlay, nil
}
