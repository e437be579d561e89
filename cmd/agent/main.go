// Package main implements the netshaper agent CLI.
package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/netshaper/netshaper/cmd/agent/commands"
	"github.com/netshaper/netshaper/pkg/runtime"
)

func main() {
	rootCmd := commands.BuildRootCmd(runtime.DefaultEnvironment())

	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
