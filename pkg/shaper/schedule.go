package shaper

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"
)

// ScheduledUpdate re-parameterizes the live pipe at a fixed offset from the
// start of a replay.
type ScheduledUpdate struct {
	// At is the offset from the start of the replay at which the values
	// take effect.
	At time.Duration
	// PacketLossPercent is the packet loss to apply, 0 to 100.
	PacketLossPercent float64
	// LatencyMS is the latency to apply, in milliseconds.
	LatencyMS int
	// BandwidthBPS is the bandwidth cap to apply, in bits per second.
	BandwidthBPS int64
}

// Replay applies the scheduled updates to the live pipe, waiting for each
// offset relative to the moment Replay is called. Updates are applied in
// offset order regardless of the order given. The classification rules stay
// in place throughout; only the pipe parameters change, exactly as with
// Update.
//
// Replay returns early without error when ctx is cancelled, so a
// signal-triggered shutdown proceeds straight to Cleanup. It fails with
// ErrNotApplied when no rules are active.
func (m *Manager) Replay(ctx context.Context, updates []ScheduledUpdate) error {
	if !m.Applied() {
		return ErrNotApplied
	}

	updates = slices.Clone(updates)
	slices.SortStableFunc(updates, func(a, b ScheduledUpdate) int {
		return cmp.Compare(a.At, b.At)
	})

	epoch := time.Now()
	for _, update := range updates {
		select {
		case <-ctx.Done():
			m.logger().Info("replay stopped")
			return nil
		case <-time.After(time.Until(epoch.Add(update.At))):
		}

		m.logger().WithField("offset", update.At).Info("applying scheduled update")
		if err := m.Update(update.PacketLossPercent, update.LatencyMS, update.BandwidthBPS); err != nil {
			return fmt.Errorf("applying scheduled update at %s: %w", update.At, err)
		}
	}

	return nil
}
