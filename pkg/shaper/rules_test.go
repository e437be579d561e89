package shaper

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/netshaper/netshaper/pkg/dummynet"
	"github.com/netshaper/netshaper/pkg/ipfw"
)

func Test_Rules(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		title    string
		protocol Protocol
		address  string
		ports    *PortRange
		expected []ipfw.Rule
	}{
		{
			title:    "both protocols expand to two rules sharing the predicate",
			protocol: ProtocolBoth,
			ports:    &PortRange{Low: 80, High: 8080},
			expected: []ipfw.Rule{
				{Number: 10000, Set: 30, Body: "pipe 1 tcp from any to any 80-8080"},
				{Number: 10001, Set: 30, Body: "pipe 1 udp from any to any 80-8080"},
			},
		},
		{
			title:    "tcp only",
			protocol: ProtocolTCP,
			expected: []ipfw.Rule{
				{Number: 10000, Set: 30, Body: "pipe 1 tcp from any to any"},
			},
		},
		{
			title:    "udp only",
			protocol: ProtocolUDP,
			expected: []ipfw.Rule{
				{Number: 10000, Set: 30, Body: "pipe 1 udp from any to any"},
			},
		},
		{
			title:    "target address narrows the predicate",
			protocol: ProtocolUDP,
			address:  "192.0.2.10",
			expected: []ipfw.Rule{
				{Number: 10000, Set: 30, Body: "pipe 1 udp from any to 192.0.2.10"},
			},
		},
		{
			title:    "address and ports",
			protocol: ProtocolTCP,
			address:  "192.0.2.10",
			ports:    &PortRange{Low: 443, High: 443},
			expected: []ipfw.Rule{
				{Number: 10000, Set: 30, Body: "pipe 1 tcp from any to 192.0.2.10 443-443"},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.title, func(t *testing.T) {
			t.Parallel()

			cfg, err := NewTrafficConfig(5.0, 100, 1000000, tc.protocol, tc.address, tc.ports)
			if err != nil {
				t.Fatalf("failed with error %v", err)
			}

			rules := cfg.rules(1, 30, 10000)
			if diff := cmp.Diff(tc.expected, rules); diff != "" {
				t.Errorf("generated rules do not match expectation:\n%s", diff)
			}
		})
	}
}

func Test_PipeConfig(t *testing.T) {
	t.Parallel()

	cfg, err := NewTrafficConfig(5.0, 100, 1000000, ProtocolBoth, "", nil)
	if err != nil {
		t.Fatalf("failed with error %v", err)
	}

	expected := dummynet.PipeConfig{
		BandwidthBPS: 1000000,
		DelayMS:      100,
		LossRatio:    0.05,
	}
	if diff := cmp.Diff(expected, cfg.pipeConfig()); diff != "" {
		t.Errorf("pipe config does not match expectation:\n%s", diff)
	}
}
