package dummynet_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/netshaper/netshaper/pkg/dummynet"
	"github.com/netshaper/netshaper/pkg/runtime"
)

func Test_Dummynet(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		title        string
		run          func(d *dummynet.Dummynet) error
		expectedCmds []string
	}{
		{
			title: "configure pipe",
			run: func(d *dummynet.Dummynet) error {
				return d.ConfigurePipe(1, dummynet.PipeConfig{
					BandwidthBPS: 1000000,
					DelayMS:      100,
					LossRatio:    0.05,
				})
			},
			expectedCmds: []string{
				"dnctl -q pipe 1 config bw 1000000bit/s delay 100ms plr 0.05",
			},
		},
		{
			title: "configure pipe with zero impairments",
			run: func(d *dummynet.Dummynet) error {
				return d.ConfigurePipe(2, dummynet.PipeConfig{
					BandwidthBPS: 56000,
				})
			},
			expectedCmds: []string{
				"dnctl -q pipe 2 config bw 56000bit/s delay 0ms plr 0",
			},
		},
		{
			title: "delete pipe",
			run: func(d *dummynet.Dummynet) error {
				return d.DeletePipe(1)
			},
			expectedCmds: []string{
				"dnctl -q pipe delete 1",
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.title, func(t *testing.T) {
			t.Parallel()

			executor := runtime.NewFakeExecutor(nil, nil)

			if err := tc.run(dummynet.New(executor)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tc.expectedCmds, executor.CmdHistory()); diff != "" {
				t.Errorf("executed commands do not match expectation:\n%s", diff)
			}
		})
	}
}

func Test_DummynetFailure(t *testing.T) {
	t.Parallel()

	execErr := errors.New("exit status 71")
	executor := runtime.NewFakeExecutor([]byte("dnctl: can't open device"), execErr)

	err := dummynet.New(executor).DeletePipe(1)
	if !errors.Is(err, execErr) {
		t.Fatalf("expected error to wrap the execution failure, got %v", err)
	}

	cmdErr := &runtime.CommandError{}
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected a CommandError, got %v", err)
	}

	if cmdErr.Command != "dnctl -q pipe delete 1" {
		t.Errorf("unexpected command line %q", cmdErr.Command)
	}
}
