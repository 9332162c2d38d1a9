// Package config loads the daemon's TOML configuration and turns it into
// the timing, threshold and wiring values the other packages take.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sweeney/reaction-timer/internal/gpio"
	"github.com/sweeney/reaction-timer/internal/input"
	"github.com/sweeney/reaction-timer/internal/logic"
)

// FileConfig represents the TOML configuration file. Every field is a
// pointer so that only keys present in the file override defaults.
type FileConfig struct {
	Rounds  RoundsConfig  `toml:"rounds"`
	Timing  TimingConfig  `toml:"timing"`
	Input   InputConfig   `toml:"input"`
	Daemon  DaemonConfig  `toml:"daemon"`
	Storage StorageConfig `toml:"storage"`
	MQTT    MQTTConfig    `toml:"mqtt"`
	HTTP    HTTPConfig    `toml:"http"`
	GPIO    GPIOConfig    `toml:"gpio"`
}

// RoundsConfig maps block sizes.
type RoundsConfig struct {
	Normal   *int `toml:"normal"`
	Practice *int `toml:"practice"`
}

// TimingConfig maps stimulus and countdown timing.
type TimingConfig struct {
	ResponseTimeoutMs *int64 `toml:"response_timeout_ms"`
	DelayMinMs        *int64 `toml:"delay_min_ms"`
	DelayMaxMs        *int64 `toml:"delay_max_ms"`
	TooFastMs         *int64 `toml:"too_fast_ms"`
	CountdownStageMs  *int64 `toml:"countdown_stage_ms"`
	CountdownStages   *int   `toml:"countdown_stages"`
}

// InputConfig maps gesture thresholds.
type InputConfig struct {
	DebounceMs   *int64 `toml:"debounce_ms"`
	NavHoldMs    *int64 `toml:"nav_hold_ms"`
	StartHoldMs  *int64 `toml:"start_hold_ms"`
	CancelHoldMs *int64 `toml:"cancel_hold_ms"`
	ClearHoldMs  *int64 `toml:"clear_hold_ms"`
}

// DaemonConfig maps poll loop settings.
type DaemonConfig struct {
	PollMs *int64 `toml:"poll_ms"`
	UserID *int   `toml:"user_id"`
}

// StorageConfig maps result file locations. An empty string disables a store.
type StorageConfig struct {
	CSVPath *string `toml:"csv_path"`
	DBPath  *string `toml:"db_path"`
}

// MQTTConfig maps broker settings. An empty broker disables publishing.
type MQTTConfig struct {
	Broker      *string `toml:"broker"`
	ClientID    *string `toml:"client_id"`
	HeartbeatMs *int64  `toml:"heartbeat_ms"`
}

// HTTPConfig maps the status server. An empty addr disables it.
type HTTPConfig struct {
	Addr *string `toml:"addr"`
}

// GPIOConfig maps pin wiring.
type GPIOConfig struct {
	Chip    *string `toml:"chip"`
	Buttons []int   `toml:"buttons"`
	Lights  []int   `toml:"lights"`
}

// Config is the effective configuration after defaults, file and flags.
type Config struct {
	RoundsNormal      int
	RoundsPractice    int
	ResponseTimeoutMs int64
	DelayMinMs        int64
	DelayMaxMs        int64
	TooFastMs         int64
	CountdownStageMs  int64
	CountdownStages   int

	DebounceMs   int64
	NavHoldMs    int64
	StartHoldMs  int64
	CancelHoldMs int64
	ClearHoldMs  int64

	PollMs int64
	UserID int

	CSVPath string
	DBPath  string

	Broker      string
	ClientID    string
	HeartbeatMs int64

	HTTPAddr string

	Chip    string
	Buttons []int
	Lights  []int
}

// Default returns the stock configuration.
func Default() Config {
	t := logic.DefaultTiming()
	th := input.DefaultThresholds()
	pins := gpio.DefaultPins()
	return Config{
		RoundsNormal:      t.MaxRoundsNormal,
		RoundsPractice:    t.MaxRoundsPractice,
		ResponseTimeoutMs: t.ResponseTimeout.Milliseconds(),
		DelayMinMs:        t.DelayMin.Milliseconds(),
		DelayMaxMs:        t.DelayMax.Milliseconds(),
		TooFastMs:         t.TooFast.Milliseconds(),
		CountdownStageMs:  t.CountdownStage.Milliseconds(),
		CountdownStages:   t.CountdownStages,

		DebounceMs:   th.Debounce.Milliseconds(),
		NavHoldMs:    th.NavHold.Milliseconds(),
		StartHoldMs:  th.StartHold.Milliseconds(),
		CancelHoldMs: th.CancelHold.Milliseconds(),
		ClearHoldMs:  th.ClearHold.Milliseconds(),

		PollMs: 5,
		UserID: 1,

		CSVPath: DefaultCSVPath(),
		DBPath:  DefaultDBPath(),

		ClientID:    AppName,
		HeartbeatMs: 900000,

		HTTPAddr: ":8080",

		Chip:    pins.Chip,
		Buttons: pins.Buttons,
		Lights:  pins.Lights,
	}
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("stat config: %w", err)
	}
	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return FileConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return FileConfig{}, fmt.Errorf("decode config: unknown key %q", undec[0].String())
	}
	return fc, nil
}

// Load returns the defaults overlaid with the file at path.
func Load(path string) (Config, error) {
	fc, err := LoadConfig(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	cfg.Apply(fc)
	return cfg, nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Apply overlays every key present in fc.
func (c *Config) Apply(fc FileConfig) {
	setInt(&c.RoundsNormal, fc.Rounds.Normal)
	setInt(&c.RoundsPractice, fc.Rounds.Practice)

	setInt64(&c.ResponseTimeoutMs, fc.Timing.ResponseTimeoutMs)
	setInt64(&c.DelayMinMs, fc.Timing.DelayMinMs)
	setInt64(&c.DelayMaxMs, fc.Timing.DelayMaxMs)
	setInt64(&c.TooFastMs, fc.Timing.TooFastMs)
	setInt64(&c.CountdownStageMs, fc.Timing.CountdownStageMs)
	setInt(&c.CountdownStages, fc.Timing.CountdownStages)

	setInt64(&c.DebounceMs, fc.Input.DebounceMs)
	setInt64(&c.NavHoldMs, fc.Input.NavHoldMs)
	setInt64(&c.StartHoldMs, fc.Input.StartHoldMs)
	setInt64(&c.CancelHoldMs, fc.Input.CancelHoldMs)
	setInt64(&c.ClearHoldMs, fc.Input.ClearHoldMs)

	setInt64(&c.PollMs, fc.Daemon.PollMs)
	setInt(&c.UserID, fc.Daemon.UserID)

	setString(&c.CSVPath, fc.Storage.CSVPath)
	setString(&c.DBPath, fc.Storage.DBPath)

	setString(&c.Broker, fc.MQTT.Broker)
	setString(&c.ClientID, fc.MQTT.ClientID)
	setInt64(&c.HeartbeatMs, fc.MQTT.HeartbeatMs)

	setString(&c.HTTPAddr, fc.HTTP.Addr)

	setString(&c.Chip, fc.GPIO.Chip)
	if fc.GPIO.Buttons != nil {
		c.Buttons = append([]int(nil), fc.GPIO.Buttons...)
	}
	if fc.GPIO.Lights != nil {
		c.Lights = append([]int(nil), fc.GPIO.Lights...)
	}
}

// Validate reports every setting the daemon cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.RoundsNormal <= 0 {
		errs = append(errs, fmt.Errorf("rounds.normal must be positive, got %d", c.RoundsNormal))
	}
	if c.RoundsPractice <= 0 {
		errs = append(errs, fmt.Errorf("rounds.practice must be positive, got %d", c.RoundsPractice))
	}
	if c.ResponseTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("timing.response_timeout_ms must be positive, got %d", c.ResponseTimeoutMs))
	}
	if c.DelayMinMs < 0 {
		errs = append(errs, fmt.Errorf("timing.delay_min_ms must not be negative, got %d", c.DelayMinMs))
	}
	if c.DelayMinMs > c.DelayMaxMs {
		errs = append(errs, fmt.Errorf("timing.delay_min_ms (%d) exceeds timing.delay_max_ms (%d)", c.DelayMinMs, c.DelayMaxMs))
	}
	if c.TooFastMs < 0 || c.TooFastMs >= c.ResponseTimeoutMs {
		errs = append(errs, fmt.Errorf("timing.too_fast_ms (%d) must be below timing.response_timeout_ms (%d)", c.TooFastMs, c.ResponseTimeoutMs))
	}
	if c.CountdownStageMs <= 0 {
		errs = append(errs, fmt.Errorf("timing.countdown_stage_ms must be positive, got %d", c.CountdownStageMs))
	}
	if c.CountdownStages <= 0 {
		errs = append(errs, fmt.Errorf("timing.countdown_stages must be positive, got %d", c.CountdownStages))
	}
	if c.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("input.debounce_ms must not be negative, got %d", c.DebounceMs))
	}
	for _, h := range []struct {
		key string
		ms  int64
	}{
		{"input.nav_hold_ms", c.NavHoldMs},
		{"input.start_hold_ms", c.StartHoldMs},
		{"input.cancel_hold_ms", c.CancelHoldMs},
		{"input.clear_hold_ms", c.ClearHoldMs},
	} {
		if h.ms <= c.DebounceMs {
			errs = append(errs, fmt.Errorf("%s (%d) must exceed input.debounce_ms (%d)", h.key, h.ms, c.DebounceMs))
		}
	}
	if c.PollMs <= 0 {
		errs = append(errs, fmt.Errorf("daemon.poll_ms must be positive, got %d", c.PollMs))
	}
	if c.UserID < 1 {
		errs = append(errs, fmt.Errorf("daemon.user_id must be at least 1, got %d", c.UserID))
	}
	if c.HeartbeatMs < 0 {
		errs = append(errs, fmt.Errorf("mqtt.heartbeat_ms must not be negative, got %d", c.HeartbeatMs))
	}
	if len(c.Buttons) != input.NumButtons {
		errs = append(errs, fmt.Errorf("gpio.buttons needs %d pins, got %d", input.NumButtons, len(c.Buttons)))
	}
	if len(c.Lights) != logic.NumLights {
		errs = append(errs, fmt.Errorf("gpio.lights needs %d pins, got %d", logic.NumLights, len(c.Lights)))
	}
	return errors.Join(errs...)
}

// Timing converts the session settings.
func (c Config) Timing() logic.Timing {
	return logic.Timing{
		MaxRoundsNormal:   c.RoundsNormal,
		MaxRoundsPractice: c.RoundsPractice,
		ResponseTimeout:   time.Duration(c.ResponseTimeoutMs) * time.Millisecond,
		DelayMin:          time.Duration(c.DelayMinMs) * time.Millisecond,
		DelayMax:          time.Duration(c.DelayMaxMs) * time.Millisecond,
		TooFast:           time.Duration(c.TooFastMs) * time.Millisecond,
		CountdownStage:    time.Duration(c.CountdownStageMs) * time.Millisecond,
		CountdownStages:   c.CountdownStages,
	}
}

// Thresholds converts the gesture settings.
func (c Config) Thresholds() input.Thresholds {
	return input.Thresholds{
		Debounce:   time.Duration(c.DebounceMs) * time.Millisecond,
		NavHold:    time.Duration(c.NavHoldMs) * time.Millisecond,
		StartHold:  time.Duration(c.StartHoldMs) * time.Millisecond,
		CancelHold: time.Duration(c.CancelHoldMs) * time.Millisecond,
		ClearHold:  time.Duration(c.ClearHoldMs) * time.Millisecond,
	}
}

// Pins converts the GPIO wiring.
func (c Config) Pins() gpio.Pins {
	return gpio.Pins{
		Chip:    c.Chip,
		Buttons: append([]int(nil), c.Buttons...),
		Lights:  append([]int(nil), c.Lights...),
	}
}

// File returns c as a fully populated FileConfig.
func (c Config) File() FileConfig {
	return FileConfig{
		Rounds: RoundsConfig{Normal: &c.RoundsNormal, Practice: &c.RoundsPractice},
		Timing: TimingConfig{
			ResponseTimeoutMs: &c.ResponseTimeoutMs,
			DelayMinMs:        &c.DelayMinMs,
			DelayMaxMs:        &c.DelayMaxMs,
			TooFastMs:         &c.TooFastMs,
			CountdownStageMs:  &c.CountdownStageMs,
			CountdownStages:   &c.CountdownStages,
		},
		Input: InputConfig{
			DebounceMs:   &c.DebounceMs,
			NavHoldMs:    &c.NavHoldMs,
			StartHoldMs:  &c.StartHoldMs,
			CancelHoldMs: &c.CancelHoldMs,
			ClearHoldMs:  &c.ClearHoldMs,
		},
		Daemon:  DaemonConfig{PollMs: &c.PollMs, UserID: &c.UserID},
		Storage: StorageConfig{CSVPath: &c.CSVPath, DBPath: &c.DBPath},
		MQTT:    MQTTConfig{Broker: &c.Broker, ClientID: &c.ClientID, HeartbeatMs: &c.HeartbeatMs},
		HTTP:    HTTPConfig{Addr: &c.HTTPAddr},
		GPIO:    GPIOConfig{Chip: &c.Chip, Buttons: c.Buttons, Lights: c.Lights},
	}
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c.File()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
