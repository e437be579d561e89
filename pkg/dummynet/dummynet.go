// Package dummynet configures dummynet shaping pipes by wrapping the
// dnctl(8) command.
package dummynet

import (
	"strconv"

	"github.com/netshaper/netshaper/pkg/runtime"
)

// PipeConfig holds the shaping parameters of a dummynet pipe.
type PipeConfig struct {
	// BandwidthBPS is the bandwidth cap in bits per second.
	BandwidthBPS int64
	// DelayMS is the delay added to each packet traversing the pipe, in
	// milliseconds. Traffic matched in both directions traverses the pipe
	// twice, so the round-trip time grows by roughly twice this value.
	DelayMS int
	// LossRatio is the independent per-packet drop probability, 0.0 to 1.0.
	LossRatio float64
}

func (c PipeConfig) configArgs(pipe int) []string {
	return []string{
		"-q", "pipe", strconv.Itoa(pipe), "config",
		"bw", strconv.FormatInt(c.BandwidthBPS, 10) + "bit/s",
		"delay", strconv.Itoa(c.DelayMS) + "ms",
		"plr", strconv.FormatFloat(c.LossRatio, 'f', -1, 64),
	}
}

// Dummynet configures and releases shaping pipes through a runtime.Executor.
type Dummynet struct {
	executor runtime.Executor
}

// New returns a new Dummynet ready to use.
func New(executor runtime.Executor) *Dummynet {
	return &Dummynet{
		executor: executor,
	}
}

// ConfigurePipe creates the pipe if it does not exist, or re-parameterizes
// it if it does. Bandwidth, delay and loss live on the same engine channel
// and are set in a single call.
func (d *Dummynet) ConfigurePipe(pipe int, config PipeConfig) error {
	return d.exec(config.configArgs(pipe)...)
}

// DeletePipe releases the pipe. Only this pipe is touched; pipes owned by
// other tools on the host are left alone.
func (d *Dummynet) DeletePipe(pipe int) error {
	return d.exec("-q", "pipe", "delete", strconv.Itoa(pipe))
}

func (d *Dummynet) exec(args ...string) error {
	out, err := d.executor.Exec("dnctl", args...)
	if err != nil {
		return runtime.NewCommandError("dnctl", args, out, err)
	}

	return nil
}
