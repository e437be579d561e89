package shaper

import (
	"fmt"

	"github.com/netshaper/netshaper/pkg/dummynet"
	"github.com/netshaper/netshaper/pkg/ipfw"
)

// pipeConfig returns the dummynet parameters implementing the configured
// impairments. The loss percentage becomes a 0-1 drop probability.
func (c TrafficConfig) pipeConfig() dummynet.PipeConfig {
	return dummynet.PipeConfig{
		BandwidthBPS: c.bandwidthBPS,
		DelayMS:      c.latencyMS,
		LossRatio:    c.lossPercent / 100.0,
	}
}

// protocols expands the protocol selector into the concrete transport
// protocols a rule must be generated for.
func (c TrafficConfig) protocols() []string {
	if c.protocol == ProtocolBoth {
		return []string{"tcp", "udp"}
	}
	return []string{c.protocol.String()}
}

// predicate renders the match predicate shared by all generated rules.
// Rules carry no direction keyword so traffic in both directions diverts
// into the pipe.
func (c TrafficConfig) predicate() string {
	to := "any"
	if c.address != "" {
		to = c.address
	}

	predicate := fmt.Sprintf("from any to %s", to)
	if c.ports != nil {
		predicate += fmt.Sprintf(" %d-%d", c.ports.Low, c.ports.High)
	}

	return predicate
}

// rules returns the classification rules diverting matching traffic into
// the given pipe, one per applicable protocol, numbered from base within
// the given rule set.
func (c TrafficConfig) rules(pipe, set, base int) []ipfw.Rule {
	var rules []ipfw.Rule
	for i, proto := range c.protocols() {
		rules = append(rules, ipfw.Rule{
			Number: base + i,
			Set:    set,
			Body:   fmt.Sprintf("pipe %d %s %s", pipe, proto, c.predicate()),
		})
	}

	return rules
}
