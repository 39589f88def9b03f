/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	backoffBase time.Duration
	backoffMax  time.Duration
	debounce    time.Duration
	device      string
	dial        string
	players     map[string]int
	queue       int
	server      string
	timeout     time.Duration
	verbose     bool
	version     bool
}

func (c *Config) validate() error {
	u, err := url.Parse(c.server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url: %q", c.server)
	}
	if c.device != "" && c.dial != "" {
		return errors.New("--device and --dial are mutually exclusive")
	}
	if c.timeout <= 0 {
		return fmt.Errorf("invalid timeout (must be positive): %s", c.timeout)
	}
	if c.debounce < 0 {
		return fmt.Errorf("invalid debounce (must not be negative): %s", c.debounce)
	}
	if c.backoffBase <= 0 || c.backoffMax < c.backoffBase {
		return fmt.Errorf("invalid backoff (need 0 < base <= max): %s, %s", c.backoffBase, c.backoffMax)
	}
	if c.queue < 1 {
		return fmt.Errorf("invalid queue (must be at least 1): %d", c.queue)
	}
	if len(c.players) == 0 {
		return errors.New("--player must map at least one button")
	}
	for key, id := range c.players {
		if id < 1 {
			return fmt.Errorf("invalid character id for %s: %d", key, id)
		}
	}
	return nil
}

// playerMap normalises button keys to the form controllers report them in.
func (c *Config) playerMap() map[string]int64 {
	m := make(map[string]int64, len(c.players))
	for key, id := range c.players {
		m[strings.ToUpper(strings.TrimSpace(key))] = int64(id)
	}
	return m
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ARMOURY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "armoury-buttons",
		Short:         "Forwards presses on the table's hit point buttons to the armoury server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return forward(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.DurationVar(&cfg.backoffBase, "backoff-base", 2*time.Second, "initial delay before reopening a lost source (env: ARMOURY_BACKOFF_BASE)")
	fs.DurationVar(&cfg.backoffMax, "backoff-max", 30*time.Second, "maximum delay before reopening a lost source (env: ARMOURY_BACKOFF_MAX)")
	fs.DurationVar(&cfg.debounce, "debounce", 200*time.Millisecond, "ignore repeats of a button within this interval (env: ARMOURY_DEBOUNCE)")
	fs.StringVar(&cfg.device, "device", "", "serial device or pipe to read presses from, instead of stdin (env: ARMOURY_DEVICE)")
	fs.StringVar(&cfg.dial, "dial", "", "host:port to read presses from over tcp, instead of stdin (env: ARMOURY_DIAL)")
	fs.StringToIntVar(&cfg.players, "player", map[string]int{"P1": 1, "P2": 2, "P3": 3, "P4": 4}, "button to character id mapping (env: ARMOURY_PLAYER)")
	fs.IntVar(&cfg.queue, "queue", 4, "presses held per character while a request is in flight (env: ARMOURY_QUEUE)")
	fs.StringVarP(&cfg.server, "server", "s", "http://127.0.0.1:5000", "armoury server url, including any prefix (env: ARMOURY_SERVER)")
	fs.DurationVar(&cfg.timeout, "timeout", 2*time.Second, "timeout for each request to the server (env: ARMOURY_TIMEOUT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: ARMOURY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: ARMOURY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("armoury-buttons v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
