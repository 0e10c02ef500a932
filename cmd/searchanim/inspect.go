package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
	"github.com/udohsolomon/planning-explorer-sub006/internal/timing"
)

// schedule is the timings command output.
type schedule struct {
	Mobile        bool                      `json:"mobile"`
	ReducedMotion bool                      `json:"reduced_motion"`
	ResponseTime  *time.Duration            `json:"response_time,omitempty"`
	Base          timing.AnimationTimings   `json:"base"`
	Final         timing.AcceleratedTimings `json:"final"`
}

func newTimingsCmd(v *viper.Viper) *cobra.Command {
	timingsCmd := &cobra.Command{
		Use:   "timings",
		Short: "Print the stage schedule a run would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			reduced := cfg.Motion.ReducedMotion
			base := timing.GetTimingConfig(cfg.Timing.Mobile, reduced)

			response := timing.UnknownResponseTime
			out := schedule{Mobile: cfg.Timing.Mobile, ReducedMotion: reduced, Base: base}
			if cmd.Flags().Changed(FlagResponseTime) {
				response, _ = cmd.Flags().GetDuration(FlagResponseTime)
				out.ResponseTime = &response
			}
			// Reduced motion already shortens every stage, so it is never
			// accelerated further.
			out.Final = cfg.Timing.Policy().Accelerate(base.StageDurations, response, cfg.Timing.Acceleration && !reduced)

			if asJSON, _ := cmd.Flags().GetBool(FlagJSON); asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printSchedule(cmd.OutOrStdout(), out)
			return nil
		},
	}

	timingsCmd.Flags().Duration(FlagResponseTime, 0, "Backend response time to accelerate for")
	timingsCmd.Flags().Bool(FlagJSON, false, "Output as JSON")
	addTimingFlags(timingsCmd)

	return timingsCmd
}

func printSchedule(w io.Writer, s schedule) {
	fmt.Fprintf(w, "%-3s %-26s %10s %10s\n", "#", "STAGE", "NOMINAL", "FINAL")
	for i, st := range stages.All() {
		fmt.Fprintf(w, "%-3d %-26s %10s %10s\n", st.ID, st.Title,
			s.Base.StageDurations[i], s.Final.StageDurations[i])
	}
	fmt.Fprintf(w, "%-30s %10s %10s\n", "total", s.Base.TotalDuration, s.Final.TotalDuration)
	if s.Final.IsAccelerated {
		fmt.Fprintf(w, "accelerated x%.2f\n", s.Final.SpeedFactor)
	}
}

func newStagesCmd() *cobra.Command {
	stagesCmd := &cobra.Command{
		Use:   "stages",
		Short: "Print the stage script",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString(FlagFormat)
			all := stages.All()

			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), all)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(all); err != nil {
					return fmt.Errorf("encode stages: %w", err)
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
		},
	}

	stagesCmd.Flags().String(FlagFormat, "yaml", "Output format: yaml or json")
	return stagesCmd
}

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the persisted run summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			h, err := events.ReadHistory(cfg.Paths.History)
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(w, "No runs yet")
				return nil
			}
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool(FlagJSON); asJSON {
				return writeJSON(w, h)
			}
			printHistory(w, h)
			return nil
		},
	}

	historyCmd.Flags().Bool(FlagJSON, false, "Output as JSON")
	return historyCmd
}

func printHistory(w io.Writer, h events.History) {
	fmt.Fprintf(w, "Runs: %d\n", h.Runs)
	fmt.Fprintf(w, "  Completed: %d\n", h.Completed)
	fmt.Fprintf(w, "  Cancelled: %d\n", h.Cancelled)
	fmt.Fprintf(w, "  Failed: %d\n", h.Failed)
	fmt.Fprintf(w, "  Accelerated: %d\n", h.Accelerated)

	if len(h.ErrorsByType) > 0 {
		kinds := make([]string, 0, len(h.ErrorsByType))
		for k := range h.ErrorsByType {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprintln(w, "Errors:")
		for _, k := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", k, h.ErrorsByType[k])
		}
	}

	if r := h.LastRun; r != nil {
		fmt.Fprintf(w, "Last run: #%d %s at stage %d after %dms", r.Run, r.Outcome, r.Stage, r.ElapsedMs)
		if r.ErrorType != "" {
			fmt.Fprintf(w, " (%s)", r.ErrorType)
		}
		fmt.Fprintln(w)
	}
}

func newEventsCmd(v *viper.Viper) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "View recent events from the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			file, err := os.Open(cfg.Paths.EventLog)
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(w, "No events yet (log file does not exist)")
				return nil
			}
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer func() { _ = file.Close() }()

			count, _ := cmd.Flags().GetInt(FlagCount)
			evs, err := events.ReadLog(file, count)
			if err != nil {
				return fmt.Errorf("read log file: %w", err)
			}
			if len(evs) == 0 {
				fmt.Fprintln(w, "No events yet")
				return nil
			}
			for _, ev := range evs {
				fmt.Fprintln(w, events.FormatWithTimestamp(ev))
			}
			return nil
		},
	}

	eventsCmd.Flags().Int(FlagCount, 20, "Number of recent events to show")
	return eventsCmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
