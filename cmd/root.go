// Package cmd implements the sitepulse command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lukemcguire/sitepulse/config"
)

// errUnhealthy makes the process exit 1 without printing anything further;
// the report already explains what is wrong.
var errUnhealthy = errors.New("one or more sites are unhealthy")

const skipConfig = "sitepulse/skip-config"

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "sitepulse",
		Short:         "Check TLS certificates, availability and links of your sites",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] != "" {
				return nil
			}
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./sitepulse.yaml or $HOME/.config/sitepulse/sitepulse.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newSitesCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// init builds the logger and loads the config for the command about to run.
func (a *app) init(cmd *cobra.Command) error {
	logger, err := newLogger(a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.File != "" {
		logger.Debug("config loaded", zap.String("file", cfg.File), zap.Int("sites", len(cfg.Sites)))
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("config warning", zap.String("warning", w))
	}
	return nil
}

// Execute runs the root command and exits non-zero on failure or when a
// check run is unhealthy.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errUnhealthy) {
			fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		}
		os.Exit(1)
	}
}
