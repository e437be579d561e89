package shaper

import (
	"errors"
	"strings"
	"testing"
)

func Test_NewTrafficConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		title        string
		loss         float64
		latency      int
		bandwidth    int64
		protocol     Protocol
		address      string
		ports        *PortRange
		expectError  bool
		expectReason string
	}{
		{
			title:     "valid configuration",
			loss:      5.0,
			latency:   100,
			bandwidth: 1000000,
			protocol:  ProtocolBoth,
			ports:     &PortRange{Low: 80, High: 8080},
		},
		{
			title:     "loss boundaries are valid",
			loss:      0.0,
			bandwidth: 1,
			protocol:  ProtocolTCP,
		},
		{
			title:     "loss upper boundary is valid",
			loss:      100.0,
			bandwidth: 1,
			protocol:  ProtocolTCP,
		},
		{
			title:        "loss below range",
			loss:         -0.1,
			bandwidth:    1000000,
			expectError:  true,
			expectReason: "packet loss out of range",
		},
		{
			title:        "loss above range",
			loss:         100.1,
			bandwidth:    1000000,
			expectError:  true,
			expectReason: "packet loss out of range",
		},
		{
			title:        "negative latency",
			latency:      -1,
			bandwidth:    1000000,
			expectError:  true,
			expectReason: "latency must be non-negative",
		},
		{
			title:     "zero latency is valid",
			latency:   0,
			bandwidth: 1000000,
			protocol:  ProtocolUDP,
		},
		{
			title:        "zero bandwidth",
			bandwidth:    0,
			expectError:  true,
			expectReason: "bandwidth must be positive",
		},
		{
			title:        "negative bandwidth",
			bandwidth:    -1,
			expectError:  true,
			expectReason: "bandwidth must be positive",
		},
		{
			title:        "inverted port range",
			bandwidth:    1000000,
			ports:        &PortRange{Low: 8080, High: 80},
			expectError:  true,
			expectReason: "invalid port range",
		},
		{
			title:     "single-port range is valid",
			bandwidth: 1000000,
			protocol:  ProtocolTCP,
			ports:     &PortRange{Low: 80, High: 80},
		},
		{
			title:     "target address",
			bandwidth: 1000000,
			protocol:  ProtocolTCP,
			address:   "192.0.2.10",
		},
		{
			title:        "malformed target address",
			bandwidth:    1000000,
			address:      "300.0.2.10",
			expectError:  true,
			expectReason: "invalid target address",
		},
		{
			title:        "first failing check is reported",
			loss:         -1.0,
			latency:      -1,
			bandwidth:    0,
			ports:        &PortRange{Low: 8080, High: 80},
			expectError:  true,
			expectReason: "packet loss out of range",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.title, func(t *testing.T) {
			t.Parallel()

			cfg, err := NewTrafficConfig(tc.loss, tc.latency, tc.bandwidth, tc.protocol, tc.address, tc.ports)

			if tc.expectError {
				if err == nil {
					t.Fatalf("error expected but none returned")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				if !strings.Contains(err.Error(), tc.expectReason) {
					t.Errorf("expected reason %q in error %q", tc.expectReason, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("failed with error %v", err)
			}

			if cfg.PacketLossPercent() != tc.loss ||
				cfg.LatencyMS() != tc.latency ||
				cfg.BandwidthBPS() != tc.bandwidth ||
				cfg.Protocol() != tc.protocol ||
				cfg.Address() != tc.address {
				t.Errorf("constructed config does not preserve input values: %+v", cfg)
			}
		})
	}
}

func Test_ConfigImmutability(t *testing.T) {
	t.Parallel()

	ports := &PortRange{Low: 80, High: 8080}
	cfg, err := NewTrafficConfig(0, 0, 1000, ProtocolTCP, "", ports)
	if err != nil {
		t.Fatalf("failed with error %v", err)
	}

	// neither the caller's range nor the returned copy can reach inside
	ports.High = 9999
	got := cfg.Ports()
	got.Low = 1

	if p := cfg.Ports(); p.Low != 80 || p.High != 8080 {
		t.Errorf("port range was mutated through an alias: %+v", p)
	}
}

func Test_ParseProtocol(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input       string
		expected    Protocol
		expectError bool
	}{
		{input: "tcp", expected: ProtocolTCP},
		{input: "UDP", expected: ProtocolUDP},
		{input: "Both", expected: ProtocolBoth},
		{input: "icmp", expectError: true},
		{input: "", expectError: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			proto, err := ParseProtocol(tc.input)

			if tc.expectError {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("failed with error %v", err)
			}
			if proto != tc.expected {
				t.Errorf("expected %v got %v", tc.expected, proto)
			}
		})
	}
}
