package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/udohsolomon/planning-explorer-sub006/internal/analytics"
	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/config"
	"github.com/udohsolomon/planning-explorer-sub006/internal/timing"
)

var version = "dev"

func main() {
	logLevel := &slog.LevelVar{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	rootCmd := newRootCmd(viper.New(), logger, logLevel)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around v, which receives every bound
// flag and the SEARCHANIM_* environment.
func newRootCmd(v *viper.Viper, logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	v.SetEnvPrefix("SEARCHANIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "searchanim",
		Short: "Search progress animation for planning application search",
		Long: `searchanim plays the five-stage progress animation shown while a planning
application search runs: understanding the query, searching the database,
analysing results, ranking and preparing them.

The animation speeds up when the search returns early, escalates with
rotating messages, a cancel action and warnings when it runs long, and
honours reduced-motion preferences.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
				logger.Debug("verbose logging enabled")
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .searchanim/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Event log path")

	// Bind all flags to viper
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(v, logger, logLevel))
	rootCmd.AddCommand(newTimingsCmd(v))
	rootCmd.AddCommand(newStagesCmd())
	rootCmd.AddCommand(newHistoryCmd(v))
	rootCmd.AddCommand(newEventsCmd(v))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "searchanim %s\n", version)
		},
	}
}

func newRunCmd(v *viper.Viper, logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Animate a search against the simulated backend",
		Long: `Run one search with the progress animation in front of it.

The query comes from the arguments or --query. The simulated backend
answers after --latency, or fails with --fail. With --response-time the
animation is accelerated up front as if the backend had already answered
in that time.

The terminal UI is used when stdout is a terminal, otherwise each event
is printed as a line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			// Metrics endpoint override
			if cmd.Flags().Changed(FlagMetricsAddr) {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Addr = v.GetString(FlagMetricsAddr)
			}
			if cmd.Flags().Changed(FlagAwait) {
				cfg.Timing.AwaitResponse = v.GetBool(FlagAwait)
			}

			opts, err := runOptionsFrom(cmd, v, cfg, args)
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), cfg, opts, logger, logLevel, cmd.OutOrStdout())
		},
	}

	runCmd.Flags().String(FlagQuery, "", "Search query")
	runCmd.Flags().String(FlagSearchType, "", "Search type: semantic, keyword or hybrid (default from config)")
	runCmd.Flags().Duration(FlagLatency, 1500*time.Millisecond, "Simulated backend latency")
	runCmd.Flags().Duration(FlagResponseTime, 0, "Known response time used to accelerate from the start")
	runCmd.Flags().String(FlagFail, "", "Make the backend fail: connection, parsing, timeout, server, rate_limit, no_results, unknown")
	runCmd.Flags().Bool(FlagAwait, false, "Hold at the database stage until the backend answers")
	runCmd.Flags().Bool(FlagTUI, false, "Enable terminal UI (default: when stdout is a terminal)")
	runCmd.Flags().String(FlagMetricsAddr, "", "Serve Prometheus metrics on this address")
	addTimingFlags(runCmd)

	runCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	return runCmd
}

// addTimingFlags registers the schedule flags shared by run and timings.
func addTimingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(FlagMobile, false, "Use the mobile schedule")
	cmd.Flags().Bool(FlagReducedMotion, false, "Force reduced motion")
	cmd.Flags().Bool(FlagNoAcceleration, false, "Disable acceleration for fast responses")
}

// loadConfig loads configuration and applies the flags that override it.
// Flags are read from cmd rather than viper so commands sharing a flag
// name do not shadow each other.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	cfg, err := config.LoadConfig(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Apply CLI flag overrides (only if explicitly set)
	flags := cmd.Flags()
	if flags.Changed(FlagLogFile) {
		cfg.Paths.EventLog, _ = flags.GetString(FlagLogFile)
	}
	if flags.Lookup(FlagMobile) != nil && flags.Changed(FlagMobile) {
		cfg.Timing.Mobile, _ = flags.GetBool(FlagMobile)
	}
	if flags.Lookup(FlagReducedMotion) != nil && flags.Changed(FlagReducedMotion) {
		cfg.Motion.ReducedMotion, _ = flags.GetBool(FlagReducedMotion)
	}
	if flags.Lookup(FlagNoAcceleration) != nil && flags.Changed(FlagNoAcceleration) {
		noAccel, _ := flags.GetBool(FlagNoAcceleration)
		cfg.Timing.Acceleration = !noAccel
	}
	return cfg, nil
}

// runOptionsFrom resolves the run command's inputs.
func runOptionsFrom(cmd *cobra.Command, v *viper.Viper, cfg *config.Config, args []string) (runOptions, error) {
	opts := runOptions{
		Query:        v.GetString(FlagQuery),
		Latency:      v.GetDuration(FlagLatency),
		ResponseTime: timing.UnknownResponseTime,
	}
	if len(args) > 0 {
		opts.Query = strings.Join(args, " ")
	}

	searchType := cfg.Analytics.SearchType
	if s := v.GetString(FlagSearchType); s != "" {
		searchType = s
	}
	st, err := analytics.ParseSearchType(searchType)
	if err != nil {
		return runOptions{}, err
	}
	opts.SearchType = st

	if cmd.Flags().Changed(FlagResponseTime) {
		rt := v.GetDuration(FlagResponseTime)
		if rt < 0 {
			return runOptions{}, fmt.Errorf("--%s must not be negative", FlagResponseTime)
		}
		opts.ResponseTime = rt
	}

	if s := v.GetString(FlagFail); s != "" {
		kind, err := animerr.ParseKind(s)
		if err != nil {
			return runOptions{}, err
		}
		opts.Fail = kind
	}

	// Determine TUI mode: explicit flag > auto-detect from TTY
	opts.TUI = v.GetBool(FlagTUI)
	if !cmd.Flags().Changed(FlagTUI) {
		opts.TUI = term.IsTerminal(int(os.Stdout.Fd()))
	}
	return opts, nil
}
