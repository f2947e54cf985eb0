/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Seednode/cursorparty/cursors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type Config struct {
	bind          string
	defaultRoom   string
	emitInterval  time.Duration
	metrics       bool
	port          int
	prefix        string
	profile       bool
	rateBurst     int
	rateLimit     float64
	reactionTTL   time.Duration
	roomTimeout   time.Duration
	sweepInterval time.Duration
	tlsCert       string
	tlsKey        string
	verbose       bool
	version       bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if !roomIDPattern.MatchString(c.defaultRoom) {
		return fmt.Errorf("invalid room id (letters, digits, '-' and '_', at most 64): %q", c.defaultRoom)
	}
	if c.reactionTTL <= 0 || c.emitInterval <= 0 || c.sweepInterval <= 0 {
		return errors.New("--reaction-ttl, --emit-interval and --sweep-interval must all be positive")
	}
	if c.sweepInterval >= c.reactionTTL {
		return fmt.Errorf("--sweep-interval (%s) must be shorter than --reaction-ttl (%s)", c.sweepInterval, c.reactionTTL)
	}
	if c.rateLimit <= 0 || c.rateBurst < 1 {
		return errors.New("--rate-limit must be positive and --rate-burst at least 1")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) sessionOptions() cursors.Options {
	return cursors.Options{
		TTL:           c.reactionTTL,
		EmitInterval:  c.emitInterval,
		SweepInterval: c.sweepInterval,
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CURSORPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cursorparty",
		Short:         "Live multiplayer cursors, chat bubbles and emoji reactions over a shared page.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CURSORPARTY_BIND)")
	fs.DurationVar(&cfg.emitInterval, "emit-interval", cursors.DefaultEmitInterval, "time between reactions while the pointer is held (env: CURSORPARTY_EMIT_INTERVAL)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: CURSORPARTY_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CURSORPARTY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CURSORPARTY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CURSORPARTY_PROFILE)")
	fs.IntVar(&cfg.rateBurst, "rate-burst", 60, "client messages allowed in a burst (env: CURSORPARTY_RATE_BURST)")
	fs.Float64Var(&cfg.rateLimit, "rate-limit", 120, "client messages allowed per second, per connection (env: CURSORPARTY_RATE_LIMIT)")
	fs.DurationVar(&cfg.reactionTTL, "reaction-ttl", cursors.DefaultTTL, "time a reaction stays on screen (env: CURSORPARTY_REACTION_TTL)")
	fs.StringVar(&cfg.defaultRoom, "room", "live-cursors-chat", "room joined when none is given (env: CURSORPARTY_ROOM)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 60*time.Minute, "time before empty rooms are removed (env: CURSORPARTY_ROOM_TIMEOUT)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", cursors.DefaultSweepInterval, "time between expired reaction sweeps (env: CURSORPARTY_SWEEP_INTERVAL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CURSORPARTY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CURSORPARTY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CURSORPARTY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CURSORPARTY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("cursorparty v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
