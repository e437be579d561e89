package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/netshaper/netshaper/pkg/shaper"
)

// Manifest describes a replayable shaping session: a base configuration
// applied at the start, and a schedule of events re-parameterizing the live
// pipe at fixed offsets.
type Manifest struct {
	Config Config  `mapstructure:"config"`
	Events []Event `mapstructure:"events" validate:"min=1,dive"`
}

// Event is one scheduled update of the shaping parameters.
type Event struct {
	// TimeMS is the offset from the start of the replay, in milliseconds.
	TimeMS            int     `mapstructure:"time_ms" validate:"gte=0"`
	PacketLossPercent float64 `mapstructure:"packet_loss_percent" validate:"gte=0,lte=100"`
	LatencyMS         int     `mapstructure:"latency_ms" validate:"gte=0"`
	BandwidthBPS      int64   `mapstructure:"bandwidth_bps" validate:"required,gt=0"`
}

// LoadManifest reads a manifest from the given file.
func LoadManifest(path string) (*Manifest, error) {
	v := viper.New()
	v.SetDefault("config.protocol", "both")
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	manifest := &Manifest{}
	if err := v.Unmarshal(manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	return manifest, nil
}

// Validate checks the manifest against the struct tags, the base
// configuration included.
func (m *Manifest) Validate() error {
	if err := validator.New().Struct(m); err != nil {
		return fmt.Errorf("validating manifest: %w", err)
	}

	return nil
}

// Updates converts the event schedule into the scheduled pipe updates the
// shaper replays.
func (m *Manifest) Updates() []shaper.ScheduledUpdate {
	updates := make([]shaper.ScheduledUpdate, 0, len(m.Events))
	for _, event := range m.Events {
		updates = append(updates, shaper.ScheduledUpdate{
			At:                time.Duration(event.TimeMS) * time.Millisecond,
			PacketLossPercent: event.PacketLossPercent,
			LatencyMS:         event.LatencyMS,
			BandwidthBPS:      event.BandwidthBPS,
		})
	}

	return updates
}
