package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const version = "0.3.0"

type cliFlags struct {
	configPath   string
	pollInterval float64
	mine         bool
	running      bool
	logFile      string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:     "slurmvision",
		Short:   "Terminal dashboard for Slurm queues",
		Long:    "slurmvision polls squeue and sinfo in the background and renders the\nresults as an interactive terminal dashboard with filtering, job\ninspection, batch cancellation and stdout tailing.",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cfg, flags, cmd.Flags())
			return runDashboard(cfg, flags.mine, flags.running)
		},
		SilenceUsage: true,
	}

	bindFlags(cmd.Flags(), flags)
	return cmd
}

func bindFlags(fs *pflag.FlagSet, flags *cliFlags) {
	fs.StringVarP(&flags.configPath, "config", "c", "", "path to config file (default ~/.config/slurmvision/config.yml)")
	fs.Float64Var(&flags.pollInterval, "poll-interval", defaultPollingSeconds, "seconds between background squeue polls")
	fs.BoolVar(&flags.mine, "mine", false, "start with the my-jobs filter enabled")
	fs.BoolVar(&flags.running, "running", false, "start with the running-only filter enabled")
	fs.StringVar(&flags.logFile, "log-file", "", "write structured logs to this file")
}

// applyFlagOverrides lets explicitly passed flags win over the config file.
// Changed() distinguishes "--poll-interval 5" from the flag's default.
func applyFlagOverrides(cfg *Config, flags *cliFlags, fs *pflag.FlagSet) {
	if fs.Changed("poll-interval") {
		cfg.PollingInterval = &flags.pollInterval
	}
	if fs.Changed("log-file") {
		cfg.LogFile = flags.logFile
	}
}

// newLogger builds a file logger, or a no-op one when no path is configured.
// Logging to the terminal would fight the dashboard for the screen.
func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

func runDashboard(cfg *Config, startMine, startRunning bool) error {
	if cfg.User == "" {
		cfg.User = CurrentUser()
	}

	log, err := newLogger(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = log.Sync() }()

	runner := ExecRunner{}
	ctx := context.Background()

	if err := SlurmCheck(ctx, runner, cfg.Squeue.Command); err != nil {
		return err
	}

	inspector, err := NewInspector(cfg, runner, log)
	if err != nil {
		return err
	}
	if startMine {
		inspector.ToggleUserFilter()
	}
	if startRunning {
		inspector.ToggleRunningFilter()
	}

	// First snapshot before the UI comes up so the initial frame has data.
	// Failures here are not fatal; the poller keeps retrying.
	if err := inspector.RefreshJobs(ctx); err != nil {
		log.Warn("initial job refresh failed", zap.Error(err))
	}
	if err := inspector.RefreshNodes(ctx); err != nil {
		log.Warn("initial node refresh failed", zap.Error(err))
	}

	poller := NewPoller(inspector, cfg.Interval(), log)
	poller.Start()
	defer poller.Stop()

	log.Info("dashboard starting",
		zap.String("version", version),
		zap.String("user", cfg.User),
		zap.Duration("poll_interval", cfg.Interval()))

	program := tea.NewProgram(NewModel(inspector, runner, cfg, log), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
