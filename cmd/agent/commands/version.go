package commands

import (
	"github.com/spf13/cobra"

	"github.com/netshaper/netshaper/internal/version"
)

// BuildVersionCmd builds the command printing the agent version.
func BuildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the agent version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version.Version)
		},
	}
}
