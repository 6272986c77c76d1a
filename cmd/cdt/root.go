package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/cost-dashboard-tui/internal/app"
	"github.com/j-veylop/cost-dashboard-tui/internal/config"
	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/services"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/tabs/comparison"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/tabs/detail"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/tabs/info"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/tabs/overview"
	"github.com/j-veylop/cost-dashboard-tui/internal/version"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	apiURL     string
	database   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "cdt",
		Short:         "Cloud subscription cost dashboard",
		Long:          "Terminal dashboard for cloud subscription costs with cached, rate-limit aware fetching.",
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), &flags)
		},
	}
	root.SetVersionTemplate(version.Info() + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config-file", "", "explicit .env file to load")
	pf.StringVar(&flags.apiURL, "api-url", "", "cost API base URL")
	pf.StringVar(&flags.database, "db", "", "SQLite database path")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newSummaryCmd(&flags),
		newExportCmd(&flags),
		newCacheCmd(&flags),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadFrom(flags.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.apiURL != "" {
		cfg.APIURL = flags.apiURL
	}
	if flags.database != "" {
		cfg.DatabasePath = flags.database
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration, starts logging and the service manager.
// The returned cleanup func must be called once the command finishes.
func setup(flags *globalFlags) (*config.Config, *services.Manager, func(), error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, nil, err
	}

	logCloser, err := logger.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	mgr, err := services.NewManager(cfg)
	if err != nil {
		closeQuietly(logCloser)
		return nil, nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	cleanup := func() {
		if err := mgr.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", err)
		}
		closeQuietly(logCloser)
	}
	return cfg, mgr, cleanup, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func runTUI(ctx context.Context, flags *globalFlags) error {
	cfg, mgr, cleanup, err := setup(flags)
	if err != nil {
		return err
	}
	defer cleanup()

	model := app.NewModel(mgr)
	if cfg.ErrorBannerTTL > 0 {
		model.SetErrorBannerTTL(cfg.ErrorBannerTTL)
	}

	// Order matches app.TabID.
	state := model.GetState()
	model.SetTabs([]app.Tab{
		overview.New(state),
		detail.New(state),
		comparison.New(state),
		info.New(state, cfg),
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	stop := context.AfterFunc(ctx, func() { p.Send(tea.Quit()) })
	defer stop()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
