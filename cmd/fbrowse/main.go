package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pders01/fbrowse/internal/config"
	"github.com/pders01/fbrowse/internal/debuglog"
	"github.com/pders01/fbrowse/internal/fetch"
	"github.com/pders01/fbrowse/internal/remote"
	"github.com/pders01/fbrowse/internal/storage"
	"github.com/pders01/fbrowse/internal/tui"
	"github.com/pders01/fbrowse/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

// maxImportSize bounds a single imported file.
const maxImportSize = 10 << 20

type options struct {
	configPath string
	dbPath     string
	backend    string
	quiet      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "fbrowse",
		Short:        "Browse stored files from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowser(opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&opts.dbPath, "db", "", "Path to database file (overrides config)")
	flags.StringVar(&opts.backend, "backend", "", "Record store: bolt or rest (overrides config)")
	root.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Skip startup banner")

	root.AddCommand(newVersionCmd(), newConfigCmd(), newImportCmd(opts))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fbrowse %s\n", Version)
			fmt.Fprintln(out, tui.Tagline)
			fmt.Fprintln(out, "github.com/pders01/fbrowse")
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := validation.NewSecurePathHandler().GetSecureConfigPath("")
			if err != nil {
				return fmt.Errorf("resolving config path: %w", err)
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	})
	return configCmd
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Copy the text files in a directory into the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer debuglog.Close()

			if cfg.Store.Backend != config.BackendBolt {
				return fmt.Errorf("import writes to the local store; use --backend %s", config.BackendBolt)
			}

			dir, err := validation.NewPermissivePathHandler().ValidateImportDir(args[0])
			if err != nil {
				return fmt.Errorf("invalid import directory: %w", err)
			}

			records, skipped, err := readDir(dir)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SaveRecords(records); err != nil {
				return fmt.Errorf("saving records: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, name := range skipped {
				fmt.Fprintf(out, "skipped %s\n", name)
			}
			fmt.Fprintf(out, "Imported %d files into %s\n", len(records), cfg.Database.Path)
			return nil
		},
	}
}

// readDir reads the regular, non-hidden text files directly inside dir.
func readDir(dir string) ([]*storage.Record, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var records []*storage.Record
	var skipped []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := readFile(filepath.Join(dir, name))
		if err != nil {
			debuglog.Warnf("import: skipping %s: %v", name, err)
			skipped = append(skipped, name)
			continue
		}
		records = append(records, &storage.Record{
			ID:      uuid.NewString(),
			Name:    name,
			Content: string(data),
		})
	}
	return records, skipped, nil
}

var errNotText = errors.New("not a UTF-8 text file")

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImportSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("larger than %d bytes", maxImportSize)
	}
	if !utf8.Valid(data) {
		return nil, errNotText
	}
	return data, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	if opts.backend != "" {
		cfg.Store.Backend = opts.backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	path, err := validation.NewPermissivePathHandler().GetSecureDBPath(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}
	cfg.Database.Path = path

	if err := setupLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	level := debuglog.ParseLogLevel(cfg.Log.Level)
	if level == debuglog.LevelOff {
		return debuglog.Setup(level)
	}

	ph := validation.NewPermissivePathHandler()
	path, err := ph.GetSecureLogPath(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("invalid log path: %w", err)
	}
	if _, err := ph.EnsureSecureDirectory(filepath.Dir(path)); err != nil {
		return err
	}
	return debuglog.Setup(level, path)
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.NewStoreWithTimeout(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Database.Path, err)
	}
	return store, nil
}

// openSource returns the configured record source and its cleanup.
func openSource(cfg *config.Config) (fetch.Source, func() error, error) {
	if cfg.Store.Backend == config.BackendREST {
		client, err := remote.New(remote.Options{
			URL:          cfg.Remote.URL,
			APIKey:       cfg.Remote.APIKey,
			Table:        cfg.Store.Table,
			UserAgent:    cfg.Remote.UserAgent,
			RetryMax:     cfg.Remote.RetryMax,
			RetryWaitMin: cfg.Remote.RetryWaitMin,
			RetryWaitMax: cfg.Remote.RetryWaitMax,
			AllowHTTP:    cfg.Remote.AllowHTTP,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func runBrowser(opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer debuglog.Close()

	tui.ApplyTheme(cfg.UI.Colors)
	if !opts.quiet {
		tui.ShowBanner(Version)
	}

	source, closeSource, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	debuglog.WithFields(map[string]interface{}{
		"backend":   cfg.Store.Backend,
		"page_size": cfg.Fetch.PageSize,
	}).Infof("starting browser")

	app := tui.NewApp(source, cfg)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}
