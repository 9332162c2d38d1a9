package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sweeney/reaction-timer/internal/gpio"
	"github.com/sweeney/reaction-timer/internal/input"
	"github.com/sweeney/reaction-timer/internal/logic"
	"github.com/sweeney/reaction-timer/internal/store"
)

func newButtonsCmd(f *daemonFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "buttons",
		Short: "Print current button levels and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			dev, err := gpio.NewRealDevice(cfg.Pins(), nil)
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer func() {
				if cerr := dev.Close(); cerr != nil {
					log.Printf("gpio close error: %v", cerr)
				}
			}()

			levels, err := sampleLevels(dev)
			if err != nil {
				return fmt.Errorf("read gpio: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatLevels(levels))
			return err
		},
	}
}

func formatLevels(s input.Sample) string {
	parts := make([]string, 0, input.NumButtons)
	for _, b := range input.Buttons {
		state := "UP"
		if s.Low(b) {
			state = "DOWN"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", b, state))
	}
	return strings.Join(parts, ", ")
}

func newHistoryCmd(f *daemonFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("history database is disabled")
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be > 0")
			}

			db, err := store.OpenSQLite(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer func() {
				if cerr := db.Close(); cerr != nil {
					log.Printf("store close error: %v", cerr)
				}
			}()

			recs, err := db.Recent(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				_, err := fmt.Fprintln(out, "no sessions recorded")
				return err
			}
			header := lipgloss.NewRenderer(out).NewStyle().Bold(true)
			if _, err := fmt.Fprintln(out, header.Render(historyHeader())); err != nil {
				return err
			}
			for _, r := range recs {
				if _, err := fmt.Fprintln(out, formatHistoryRow(r)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of sessions to list")
	return cmd
}

func historyHeader() string {
	return fmt.Sprintf("%-20s %4s %-6s %8s %7s %7s %s", "completed", "user", "mode", "accuracy", "best", "avg", "latencies (ms)")
}

func formatHistoryRow(r logic.SessionRecord) string {
	lat := make([]string, len(r.Latencies))
	for i, l := range r.Latencies {
		lat[i] = fmt.Sprint(l.Milliseconds())
	}
	return fmt.Sprintf("%-20s %4d %-6s %7.0f%% %5dms %5dms %s",
		r.CompletedAt.Local().Format("2006-01-02 15:04:05"),
		r.UserID, r.Mode, r.Accuracy*100,
		r.Best.Milliseconds(), r.Average.Milliseconds(),
		strings.Join(lat, " "))
}

func newConfigCmd(f *daemonFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	}
}
