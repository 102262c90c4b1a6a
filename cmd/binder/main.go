package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/recera/binder/internal/config"
	"github.com/recera/binder/internal/logging"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

// app carries what the subcommands share once flags and config are parsed
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	stderr  io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "binder",
		Short: "binder - reactive template binding",
		Long: `binder binds HTML templates carrying @for, @if, @att:, @batt: and @on:
directives to a state fixture and keeps the markup in sync with the state.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .binder.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.StringP("target", "t", "body", "selector of the bound element")
	flags.String("transition-class", "", "class added to patched nodes")
	flags.Duration("transition-timeout", config.DefaultConfig().Binder.TransitionTimeout, "fallback removal delay of the transition class")
	flags.Bool("auto-update", true, "update after every event handler")

	bindFlags(a.v, flags, map[string]string{
		"log.level":                 "log-level",
		"log.format":                "log-format",
		"binder.target":             "target",
		"binder.transition_class":   "transition-class",
		"binder.transition_timeout": "transition-timeout",
		"binder.auto_update":        "auto-update",
	})

	rootCmd.AddCommand(newRenderCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newPlayCommand(a))
	return rootCmd
}

// bindFlags binds config keys to the named flags
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// init loads the configuration and builds the logger
func (a *app) init(cmd *cobra.Command) error {
	if err := config.Init(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    a.stderr,
		Component: cmd.Name(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
