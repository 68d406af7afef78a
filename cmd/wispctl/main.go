package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wisp/internal/bootstrap"
)

// cli carries the global flags and the environment opened for a command.
type cli struct {
	configPath string
	logLevel   string

	env *bootstrap.Env
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "wispctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "wispctl",
		Short:         "Manage your wisp apps from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := bootstrap.Open(cmd.Context(), bootstrap.Options{
				ConfigPath: c.configPath,
				Service:    "wispctl",
				LogWriter:  errOut,
				LogLevel:   c.logLevel,
			})
			if err != nil {
				return err
			}
			c.env = env
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.env == nil {
				return nil
			}
			return c.env.Close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $WISP_CONFIG or ~/.wisp/config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		c.listCmd(),
		c.getCmd(),
		c.discoverCmd(),
		c.createCmd(),
		c.editCmd(),
		c.deleteCmd(),
		c.refineCmd(),
		c.watchCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.accountCmd(),
	)
	return root
}
