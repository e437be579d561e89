package commands

import (
	"github.com/spf13/cobra"

	"github.com/netshaper/netshaper/pkg/dummynet"
	"github.com/netshaper/netshaper/pkg/ipfw"
	"github.com/netshaper/netshaper/pkg/runtime"
	"github.com/netshaper/netshaper/pkg/shaper"
)

// BuildCleanupCmd builds the command that removes any shaping rules left
// on the host, for instance after a crashed agent.
func BuildCleanupCmd(env runtime.Environment) *cobra.Command {
	var (
		pipe    int
		ruleSet int
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "remove any traffic shaping rules left on the host",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager := &shaper.Manager{
				Ipfw:     ipfw.New(env.Executor()),
				Dummynet: dummynet.New(env.Executor()),
				Pipe:     pipe,
				RuleSet:  ruleSet,
			}

			return manager.Cleanup()
		},
	}

	cmd.Flags().IntVar(&pipe, "pipe", shaper.DefaultPipe, "dummynet pipe to release")
	cmd.Flags().IntVar(&ruleSet, "rule-set", shaper.DefaultRuleSet, "ipfw rule set to flush")

	return cmd
}
