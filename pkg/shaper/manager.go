package shaper

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/netshaper/netshaper/pkg/dummynet"
	"github.com/netshaper/netshaper/pkg/ipfw"
	"github.com/netshaper/netshaper/pkg/runtime"
)

const (
	// DefaultPipe is the dummynet pipe reserved for the shaper. The pipe
	// is a host-global resource; only one manager may hold rules against
	// a given pipe at a time.
	DefaultPipe = 1
	// DefaultRuleSet is the ipfw rule set holding the classification
	// rules. Set 31 is reserved by ipfw and cannot be disabled, so the
	// default stays below it.
	DefaultRuleSet = 30

	// ruleNumberBase is the first rule number assigned to generated
	// classification rules.
	ruleNumberBase = 10000
)

// ErrAlreadyApplied is returned by Apply when rules are already active.
// Call Cleanup first; applying on top of live rules would stack rule sets.
var ErrAlreadyApplied = errors.New("traffic shaping rules already applied")

// ErrNotApplied is returned by Update when no rules are active.
var ErrNotApplied = errors.New("traffic shaping rules not applied")

// Manager applies and removes the traffic shaping rules for one
// configuration. Apply, Update and Cleanup are mutually exclusive; each
// engine command blocks until the external tool returns.
type Manager struct {
	// Ipfw executes classification rule commands.
	Ipfw *ipfw.Ipfw
	// Dummynet executes shaping pipe commands.
	Dummynet *dummynet.Dummynet
	// Config describes the impairments to apply.
	Config TrafficConfig
	// Pipe is the dummynet pipe number used by this manager.
	Pipe int
	// RuleSet is the ipfw rule set holding this manager's rules.
	RuleSet int
	// Logger receives state-transition logs. Defaults to the standard
	// logger when nil.
	Logger *logrus.Logger
	// Reporter, when set, receives an event record each time shaping
	// parameters take effect.
	Reporter *ReportWriter

	mu      sync.Mutex
	applied bool
	// cleaned records that the last cleanup completed successfully, making
	// the next one a no-op. It starts false so a fresh manager can be used
	// to tear down state left behind by a crashed process.
	cleaned bool
}

// NewManager returns a Manager for the given configuration using the
// default pipe and rule set.
func NewManager(executor runtime.Executor, config TrafficConfig) *Manager {
	return &Manager{
		Ipfw:     ipfw.New(executor),
		Dummynet: dummynet.New(executor),
		Config:   config,
		Pipe:     DefaultPipe,
		RuleSet:  DefaultRuleSet,
	}
}

// Applied reports whether shaping rules are currently active.
func (m *Manager) Applied() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.applied
}

// Apply installs the shaping rules: it configures the pipe, adds one
// classification rule per applicable protocol, and finally enables the
// rule set so no partial rules are ever active. If any command fails, the
// commands already issued are reversed before the error is returned, so a
// failed Apply leaves no half-configured state behind. If that reversal
// fails too, both errors are returned joined and the host should be
// treated as needing a Cleanup (or manual intervention).
//
// Calling Apply while rules are active fails with ErrAlreadyApplied.
func (m *Manager) Apply() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.applied {
		return ErrAlreadyApplied
	}
	m.cleaned = false

	log := m.logger()

	if err := m.Dummynet.ConfigurePipe(m.Pipe, m.Config.pipeConfig()); err != nil {
		return err
	}
	log.Info("configured shaping pipe")

	for _, rule := range m.Config.rules(m.Pipe, m.RuleSet, ruleNumberBase) {
		if err := m.Ipfw.Add(rule); err != nil {
			return m.rollback(err)
		}
	}
	log.WithField("set", m.RuleSet).Info("loaded classification rules")

	if err := m.Ipfw.EnableSet(m.RuleSet); err != nil {
		return m.rollback(err)
	}

	m.applied = true
	m.report(m.Config.bandwidthBPS, m.Config.latencyMS, m.Config.lossPercent)
	log.Info("traffic shaping active")

	return nil
}

// rollback reverses the commands issued by a failed Apply: it deletes the
// rules added so far and releases the pipe. The original failure is always
// returned; a rollback failure is joined to it.
func (m *Manager) rollback(cause error) error {
	m.logger().WithError(cause).Error("apply failed, rolling back partial state")

	rbErr := errors.Join(
		m.Ipfw.RollbackAdded(),
		m.Dummynet.DeletePipe(m.Pipe),
	)
	if rbErr != nil {
		return errors.Join(cause, fmt.Errorf("rolling back partial apply: %w", rbErr))
	}

	return cause
}

// Cleanup removes the shaping rules: it disables and flushes the rule set,
// then releases the pipe. It is safe to call at any time, including before
// Apply or after a failed one, and is idempotent: after a successful
// cleanup the next call issues no commands.
//
// Cleanup is best-effort: every teardown command is attempted regardless
// of earlier failures, failures are returned joined, and the manager
// considers itself reset either way. Retrying a failed cleanup is always
// safe and is the recommended recovery.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applied = false

	if m.cleaned {
		return nil
	}

	err := errors.Join(
		m.Ipfw.DisableSet(m.RuleSet),
		m.Ipfw.DeleteSet(m.RuleSet),
		m.Dummynet.DeletePipe(m.Pipe),
	)
	if err != nil {
		m.logger().WithError(err).Error("cleanup left engine state behind")
		return err
	}

	m.cleaned = true
	m.logger().Info("traffic shaping rules removed")

	return nil
}

// Update re-parameterizes the live pipe with new shaping values while the
// classification rules stay in place. It fails with ErrNotApplied when no
// rules are active.
func (m *Manager) Update(lossPercent float64, latencyMS int, bandwidthBPS int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.applied {
		return ErrNotApplied
	}

	// same checks as construction, so the pipe can never be
	// re-parameterized with values a TrafficConfig would reject
	if _, err := NewTrafficConfig(lossPercent, latencyMS, bandwidthBPS, m.Config.protocol, "", nil); err != nil {
		return err
	}

	cfg := dummynet.PipeConfig{
		BandwidthBPS: bandwidthBPS,
		DelayMS:      latencyMS,
		LossRatio:    lossPercent / 100.0,
	}
	if err := m.Dummynet.ConfigurePipe(m.Pipe, cfg); err != nil {
		return err
	}

	m.report(bandwidthBPS, latencyMS, lossPercent)
	m.logger().Info("updated shaping parameters")

	return nil
}

func (m *Manager) report(bandwidthBPS int64, latencyMS int, lossPercent float64) {
	if m.Reporter == nil {
		return
	}

	if err := m.Reporter.Report(bandwidthBPS, latencyMS, lossPercent); err != nil {
		m.logger().WithError(err).Error("failed to write event report")
	}
}

func (m *Manager) logger() *logrus.Entry {
	log := m.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return log.WithField("pipe", m.Pipe)
}
