// Command reaction-timer runs the reaction-time test device: it reads the
// buttons, drives the stimulus lights and records completed sessions.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/reaction-timer/internal/config"
)

type daemonFlags struct {
	configPath     string
	poll           time.Duration
	debounce       time.Duration
	heartbeat      time.Duration
	broker         string
	httpAddr       string
	csvPath        string
	dbPath         string
	rounds         int
	practiceRounds int
	userID         int
	chip           string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var f daemonFlags
	def := config.Default()

	rootCmd := &cobra.Command{
		Use:           "reaction-timer",
		Short:         "Reaction-time test device daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", config.DefaultConfigPath(), "TOML config file")
	pf.StringVar(&f.dbPath, "db", def.DBPath, "SQLite session history (empty to disable)")
	pf.StringVar(&f.chip, "chip", def.Chip, "GPIO chip name")

	fl := rootCmd.Flags()
	fl.DurationVar(&f.poll, "poll", ms(def.PollMs), "Poll loop interval")
	fl.DurationVar(&f.debounce, "debounce", ms(def.DebounceMs), "Button debounce window")
	fl.DurationVar(&f.heartbeat, "heartbeat", ms(def.HeartbeatMs), "Heartbeat interval (0 to disable)")
	fl.StringVar(&f.broker, "broker", def.Broker, "MQTT broker address (empty to disable)")
	fl.StringVar(&f.httpAddr, "http", def.HTTPAddr, "HTTP status address (empty to disable)")
	fl.StringVar(&f.csvPath, "csv", def.CSVPath, "Results file (empty to disable)")
	fl.IntVar(&f.rounds, "rounds", def.RoundsNormal, "Rounds per test block")
	fl.IntVar(&f.practiceRounds, "practice-rounds", def.RoundsPractice, "Rounds per practice block")
	fl.IntVar(&f.userID, "user", def.UserID, "Starting user id")

	rootCmd.AddCommand(newButtonsCmd(&f))
	rootCmd.AddCommand(newHistoryCmd(&f))
	rootCmd.AddCommand(newConfigCmd(&f))

	return rootCmd
}

// loadConfig layers defaults, the config file, then any flag set on the
// command line.
func loadConfig(cmd *cobra.Command, f *daemonFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	applyDurationFlag(cmd, "poll", &cfg.PollMs, f.poll)
	applyDurationFlag(cmd, "debounce", &cfg.DebounceMs, f.debounce)
	applyDurationFlag(cmd, "heartbeat", &cfg.HeartbeatMs, f.heartbeat)
	applyStringFlag(cmd, "broker", &cfg.Broker, f.broker)
	applyStringFlag(cmd, "http", &cfg.HTTPAddr, f.httpAddr)
	applyStringFlag(cmd, "csv", &cfg.CSVPath, f.csvPath)
	applyStringFlag(cmd, "db", &cfg.DBPath, f.dbPath)
	applyStringFlag(cmd, "chip", &cfg.Chip, f.chip)
	applyIntFlag(cmd, "rounds", &cfg.RoundsNormal, f.rounds)
	applyIntFlag(cmd, "practice-rounds", &cfg.RoundsPractice, f.practiceRounds)
	applyIntFlag(cmd, "user", &cfg.UserID, f.userID)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func ms(n int64) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyDurationFlag(cmd *cobra.Command, name string, target *int64, value time.Duration) {
	if cmd.Flags().Changed(name) {
		*target = value.Milliseconds()
	}
}
