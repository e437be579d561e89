package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netshaper/netshaper/internal/config"
	"github.com/netshaper/netshaper/pkg/runtime"
	"github.com/netshaper/netshaper/pkg/shaper"
)

// BuildRunCmd builds the command that applies the configured impairments,
// waits for the given duration (or a termination signal when the duration
// is zero), then removes every rule it installed. With --manifest the
// command instead replays a timed schedule of shaping updates and cleans
// up when the schedule is exhausted.
func BuildRunCmd(env runtime.Environment) *cobra.Command {
	var (
		configFile   string
		manifestFile string
		duration     time.Duration
		pipe         int
		ruleSet      int

		loss      float64
		latency   int
		bandwidth int64
		protocol  string
		address   string
		ports     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "apply traffic shaping rules for a duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if manifestFile != "" {
				return runManifest(cmd.Context(), env, manifestFile, pipe, ruleSet)
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			// command-line flags override file and environment values
			if cmd.Flags().Changed("loss") {
				cfg.PacketLossPercent = loss
			}
			if cmd.Flags().Changed("latency") {
				cfg.LatencyMS = latency
			}
			if cmd.Flags().Changed("bandwidth") {
				cfg.BandwidthBPS = bandwidth
			}
			if cmd.Flags().Changed("protocol") {
				cfg.Protocol = protocol
			}
			if cmd.Flags().Changed("address") {
				cfg.TargetAddress = address
			}
			if cmd.Flags().Changed("ports") {
				portRange, err := parsePortRange(ports)
				if err != nil {
					return err
				}
				cfg.TargetPorts = portRange
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			trafficCfg, err := cfg.TrafficConfig()
			if err != nil {
				return err
			}

			manager := shaper.NewManager(env.Executor(), trafficCfg)
			manager.Pipe = pipe
			manager.RuleSet = ruleSet
			manager.Reporter = cfg.ReportWriter()

			if err := manager.Apply(); err != nil {
				return fmt.Errorf("applying traffic shaping: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			if duration > 0 {
				select {
				case <-time.After(duration):
				case <-ctx.Done():
				}
			} else {
				<-ctx.Done()
			}

			if err := manager.Cleanup(); err != nil {
				return fmt.Errorf("removing traffic shaping: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "configuration file")
	cmd.Flags().StringVarP(&manifestFile, "manifest", "m", "", "manifest file with a timed schedule of shaping updates (overrides the shaping flags)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "how long to keep the rules applied (0 = until signal)")
	cmd.Flags().IntVar(&pipe, "pipe", shaper.DefaultPipe, "dummynet pipe to use")
	cmd.Flags().IntVar(&ruleSet, "rule-set", shaper.DefaultRuleSet, "ipfw rule set holding the rules")
	cmd.Flags().Float64VarP(&loss, "loss", "l", 0, "packet loss percentage (0-100)")
	cmd.Flags().IntVar(&latency, "latency", 0, "added latency in milliseconds")
	cmd.Flags().Int64VarP(&bandwidth, "bandwidth", "b", 0, "bandwidth cap in bits per second")
	cmd.Flags().StringVarP(&protocol, "protocol", "P", "", "target protocol: tcp, udp or both")
	cmd.Flags().StringVarP(&address, "address", "a", "", "target address (default: any)")
	cmd.Flags().StringVarP(&ports, "ports", "p", "", "target port range, e.g. 80-8080 (default: any)")

	return cmd
}

// runManifest applies the manifest's base configuration, replays its event
// schedule against the live pipe, and removes the rules once the schedule
// is exhausted or a termination signal arrives. The rules are removed even
// when the replay fails partway.
func runManifest(ctx context.Context, env runtime.Environment, path string, pipe, ruleSet int) error {
	manifest, err := config.LoadManifest(path)
	if err != nil {
		return err
	}
	if err := manifest.Validate(); err != nil {
		return err
	}

	trafficCfg, err := manifest.Config.TrafficConfig()
	if err != nil {
		return err
	}

	manager := shaper.NewManager(env.Executor(), trafficCfg)
	manager.Pipe = pipe
	manager.RuleSet = ruleSet
	manager.Reporter = manifest.Config.ReportWriter()

	if err := manager.Apply(); err != nil {
		return fmt.Errorf("applying traffic shaping: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	replayErr := manager.Replay(ctx, manifest.Updates())

	if err := manager.Cleanup(); err != nil {
		return errors.Join(replayErr, fmt.Errorf("removing traffic shaping: %w", err))
	}

	return replayErr
}

// parsePortRange parses "low-high" or a single port into a port range.
func parsePortRange(s string) (*config.PortRange, error) {
	low, high, found := strings.Cut(s, "-")
	if !found {
		high = low
	}

	lowPort, err := strconv.ParseUint(low, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port range %q: %w", s, err)
	}
	highPort, err := strconv.ParseUint(high, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port range %q: %w", s, err)
	}

	return &config.PortRange{
		Low:  uint16(lowPort),
		High: uint16(highPort),
	}, nil
}
