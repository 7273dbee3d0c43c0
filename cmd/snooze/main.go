package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/snooze/internal/api"
	"github.com/pders01/snooze/internal/config"
	"github.com/pders01/snooze/internal/debuglog"
	"github.com/pders01/snooze/internal/storage"
	"github.com/pders01/snooze/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

type options struct {
	configPath string
	dbPath     string
	apiURL     string
	strictAPI  bool
	logLevel   string
	quiet      bool
}

// env is what every command that talks to the API needs.
type env struct {
	cfg    *config.Config
	client *api.Client
	store  *storage.Store
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		debuglog.Warnf("closing store: %v", err)
	}
	_ = debuglog.Close()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("snooze %s\n", Version)
		fmt.Println("Hack-or-Snooze news client")
		fmt.Println("github.com/pders01/snooze")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default config to ~/.config/snooze/config.toml",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		configFile := filepath.Join(home, ".config", "snooze", "config.toml")

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

func init() {
	configCmd.AddCommand(configGenCmd)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "snooze",
		Short:         "Browse, submit and favorite Hack-or-Snooze stories",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&opts.dbPath, "db", "", "Path to session database (overrides config)")
	flags.StringVar(&opts.apiURL, "api", "", "API base URL (overrides config)")
	flags.BoolVar(&opts.strictAPI, "strict-api", false, "Refuse a plain http API base URL")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: off, error, warn, info, debug")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Skip startup banner")

	root.AddCommand(versionCmd, configCmd)
	root.AddCommand(newStoriesCmd(opts), newSubmitCmd(opts), newDeleteCmd(opts))
	root.AddCommand(newFavoriteCmd(opts, true), newFavoriteCmd(opts, false))
	root.AddCommand(newLoginCmd(opts), newSignupCmd(opts), newLogoutCmd(opts), newWhoamiCmd(opts))
	return root
}

// setup loads config, applies flag overrides, starts logging and opens
// the session store.
func setup(opts *options) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	if opts.strictAPI {
		cfg.API.RequireHTTPS = true
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	store, err := storage.NewStore(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		_ = debuglog.Close()
		return nil, err
	}

	client := api.NewClient(cfg.API)
	debuglog.WithFields(map[string]interface{}{
		"api": client.BaseURL(),
		"db":  cfg.Database.Path,
	}).Infof("snooze %s starting", Version)

	return &env{cfg: cfg, client: client, store: store}, nil
}

func runTUI(cmd *cobra.Command, opts *options) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	tui.ApplyTheme(e.cfg.UI.Colors)
	if !opts.quiet {
		tui.ShowBanner(cmd.OutOrStdout(), Version)
	}

	app := tui.NewApp(cmd.Context(), e.client, e.store, e.cfg)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
