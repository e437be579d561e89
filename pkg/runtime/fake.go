package runtime

import (
	"strings"
)

// FakeExecutor keeps the history of executed commands for inspection and
// returns predefined results. It returns the same output and error on every
// call; use CallbackExecutor when each invocation needs a different result.
type FakeExecutor struct {
	commands []string
	output   []byte
	err      error
}

// NewFakeExecutor creates a FakeExecutor returning the given output and
// error on every invocation.
func NewFakeExecutor(output []byte, err error) *FakeExecutor {
	return &FakeExecutor{
		output: output,
		err:    err,
	}
}

func (f *FakeExecutor) record(cmd string, args ...string) {
	f.commands = append(f.commands, cmd+" "+strings.Join(args, " "))
}

// Exec records the invocation and returns the predefined results.
func (f *FakeExecutor) Exec(cmd string, args ...string) ([]byte, error) {
	f.record(cmd, args...)
	return f.output, f.err
}

// Invoked indicates whether Exec was called at least once.
func (f *FakeExecutor) Invoked() bool {
	return len(f.commands) > 0
}

// CmdHistory returns the command lines executed so far, in order.
func (f *FakeExecutor) CmdHistory() []string {
	return f.commands
}

// Reset clears the command history.
func (f *FakeExecutor) Reset() {
	f.commands = nil
}

// ExecCallback receives the forward of an Exec invocation and returns the
// output and error for it.
type ExecCallback func(cmd string, args ...string) ([]byte, error)

// CallbackExecutor is a fake Executor that forwards invocations to a
// function which can return a different result for each command.
type CallbackExecutor struct {
	FakeExecutor
	callback ExecCallback
}

// NewCallbackExecutor returns a CallbackExecutor forwarding to callback.
func NewCallbackExecutor(callback ExecCallback) *CallbackExecutor {
	return &CallbackExecutor{callback: callback}
}

// Exec records the invocation and forwards it to the callback.
func (c *CallbackExecutor) Exec(cmd string, args ...string) ([]byte, error) {
	c.record(cmd, args...)
	return c.callback(cmd, args...)
}

// FakeLock implements Lock for testing.
type FakeLock struct {
	// AcquireResult is returned by Acquire.
	AcquireResult bool
	// AcquireErr is returned by Acquire.
	AcquireErr error

	acquired int
	released int
}

// NewFakeLock returns a FakeLock that always acquires.
func NewFakeLock() *FakeLock {
	return &FakeLock{AcquireResult: true}
}

// Acquire registers the call and returns the predefined result.
func (l *FakeLock) Acquire() (bool, error) {
	l.acquired++
	return l.AcquireResult, l.AcquireErr
}

// Release registers the call.
func (l *FakeLock) Release() error {
	l.released++
	return nil
}

// Released indicates whether Release was called at least once.
func (l *FakeLock) Released() bool {
	return l.released > 0
}

// FakeEnvironment holds the fakes backing an Environment for testing.
type FakeEnvironment struct {
	FakeExecutor *FakeExecutor
	FakeLock     *FakeLock
}

// NewFakeEnvironment creates a FakeEnvironment with default fakes.
func NewFakeEnvironment() *FakeEnvironment {
	return &FakeEnvironment{
		FakeExecutor: NewFakeExecutor(nil, nil),
		FakeLock:     NewFakeLock(),
	}
}

// Executor implements Environment's Executor method.
func (f *FakeEnvironment) Executor() Executor {
	return f.FakeExecutor
}

// Lock implements Environment's Lock method.
func (f *FakeEnvironment) Lock() Lock {
	return f.FakeLock
}
