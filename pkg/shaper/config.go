// Package shaper translates a traffic-impairment configuration into
// dummynet pipe and ipfw classification commands and manages their
// lifecycle on the host.
package shaper

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidConfig marks a rejected configuration value. It is returned
// wrapped with the specific reason.
var ErrInvalidConfig = errors.New("invalid configuration")

// Protocol selects which transport-layer packets a rule applies to.
type Protocol int

const (
	// ProtocolTCP matches TCP packets only.
	ProtocolTCP Protocol = iota
	// ProtocolUDP matches UDP packets only.
	ProtocolUDP
	// ProtocolBoth matches TCP and UDP packets, generating one
	// classification rule per protocol.
	ProtocolBoth
)

func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	case ProtocolBoth:
		return "both"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// ParseProtocol parses a protocol name ("tcp", "udp" or "both").
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "tcp":
		return ProtocolTCP, nil
	case "udp":
		return ProtocolUDP, nil
	case "both":
		return ProtocolBoth, nil
	default:
		return ProtocolBoth, fmt.Errorf("%w: unknown protocol %q", ErrInvalidConfig, s)
	}
}

// PortRange is an inclusive destination port range.
type PortRange struct {
	Low  uint16
	High uint16
}

// TrafficConfig describes the impairments to apply and the traffic they
// apply to. A TrafficConfig that exists has passed validation; construct
// one through NewTrafficConfig.
type TrafficConfig struct {
	lossPercent  float64
	latencyMS    int
	bandwidthBPS int64
	protocol     Protocol
	address      string
	ports        *PortRange
}

// NewTrafficConfig validates the raw field values and returns a
// TrafficConfig, or the first failing validation error. Checks run in a
// fixed order: loss, latency, bandwidth, port range, address.
//
//   - lossPercent is the independent per-packet drop probability, in
//     percent (0.0 to 100.0).
//   - latencyMS is the delay added to each matched packet; both traffic
//     directions are matched, so round-trip time grows by about twice
//     this value.
//   - bandwidthBPS caps throughput, in bits per second.
//   - address optionally restricts matching to one destination IP
//     address; empty means any address.
//   - ports optionally restricts matching to a destination port range;
//     nil means any port.
func NewTrafficConfig(
	lossPercent float64,
	latencyMS int,
	bandwidthBPS int64,
	protocol Protocol,
	address string,
	ports *PortRange,
) (TrafficConfig, error) {
	if lossPercent < 0.0 || lossPercent > 100.0 {
		return TrafficConfig{}, fmt.Errorf("%w: packet loss out of range", ErrInvalidConfig)
	}

	if latencyMS < 0 {
		return TrafficConfig{}, fmt.Errorf("%w: latency must be non-negative", ErrInvalidConfig)
	}

	if bandwidthBPS <= 0 {
		return TrafficConfig{}, fmt.Errorf("%w: bandwidth must be positive", ErrInvalidConfig)
	}

	if ports != nil && ports.Low > ports.High {
		return TrafficConfig{}, fmt.Errorf("%w: invalid port range", ErrInvalidConfig)
	}

	if address != "" && net.ParseIP(address) == nil {
		return TrafficConfig{}, fmt.Errorf("%w: invalid target address", ErrInvalidConfig)
	}

	cfg := TrafficConfig{
		lossPercent:  lossPercent,
		latencyMS:    latencyMS,
		bandwidthBPS: bandwidthBPS,
		protocol:     protocol,
		address:      address,
	}
	if ports != nil {
		p := *ports
		cfg.ports = &p
	}

	return cfg, nil
}

// PacketLossPercent returns the configured drop probability in percent.
func (c TrafficConfig) PacketLossPercent() float64 {
	return c.lossPercent
}

// LatencyMS returns the configured per-packet delay in milliseconds.
func (c TrafficConfig) LatencyMS() int {
	return c.latencyMS
}

// BandwidthBPS returns the configured bandwidth cap in bits per second.
func (c TrafficConfig) BandwidthBPS() int64 {
	return c.bandwidthBPS
}

// Protocol returns the configured transport protocol selector.
func (c TrafficConfig) Protocol() Protocol {
	return c.protocol
}

// Address returns the target address, or "" when any address matches.
func (c TrafficConfig) Address() string {
	return c.address
}

// Ports returns a copy of the target port range, or nil when any port
// matches.
func (c TrafficConfig) Ports() *PortRange {
	if c.ports == nil {
		return nil
	}
	p := *c.ports
	return &p
}
