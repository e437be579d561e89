// Package commands implements the subcommands of the netshaper agent.
package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netshaper/netshaper/pkg/runtime"
)

// BuildRootCmd builds the root command for the agent with all the
// persistent flags. The process lock is held for the duration of any
// subcommand, since the shaping channel is a host-global resource.
func BuildRootCmd(env runtime.Environment) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "netshaper-agent",
		Short: "Apply synthetic network impairments on the host",
		Long: "Applies packet loss, latency and bandwidth limits to matching traffic\n" +
			"by orchestrating the dummynet engine (dnctl and ipfw).\n" +
			"Requires privileges to alter the host packet filter.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("parsing log level: %w", err)
			}
			logrus.SetLevel(level)

			acquired, err := env.Lock().Acquire()
			if err != nil {
				return fmt.Errorf("could not acquire process lock: %w", err)
			}
			if !acquired {
				return fmt.Errorf("another instance of the agent is already running")
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return env.Lock().Release()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logging level")

	rootCmd.AddCommand(BuildRunCmd(env))
	rootCmd.AddCommand(BuildCleanupCmd(env))
	rootCmd.AddCommand(BuildVersionCmd())

	return rootCmd
}
