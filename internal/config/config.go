// Package config loads the agent configuration from a file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/netshaper/netshaper/pkg/shaper"
)

// Config is the raw agent configuration as loaded from file and
// environment. The struct tags reject values the wire format cannot
// express; semantic validation stays in shaper.NewTrafficConfig so the
// library and the agent cannot drift apart.
type Config struct {
	PacketLossPercent float64    `mapstructure:"packet_loss_percent" validate:"gte=0,lte=100"`
	LatencyMS         int        `mapstructure:"latency_ms" validate:"gte=0"`
	BandwidthBPS      int64      `mapstructure:"bandwidth_bps" validate:"required,gt=0"`
	Protocol          string     `mapstructure:"protocol" validate:"required,oneof=tcp udp both"`
	TargetAddress     string     `mapstructure:"target_address" validate:"omitempty,ip"`
	TargetPorts       *PortRange `mapstructure:"target_ports"`
	Report            Report     `mapstructure:"report"`
}

// PortRange is an inclusive destination port range.
type PortRange struct {
	Low  uint16 `mapstructure:"low" validate:"lte=65535"`
	High uint16 `mapstructure:"high" validate:"lte=65535,gtefield=Low"`
}

// Report selects where shaping event records are written.
type Report struct {
	Output string `mapstructure:"output" validate:"omitempty,oneof=stdout file"`
	Path   string `mapstructure:"path" validate:"required_if=Output file"`
}

// Load reads the configuration from the given file, or from the default
// locations (/etc/netshaper, the working directory) when path is empty.
// Environment variables prefixed NETSHAPER_ override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("protocol", "both")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("netshaper")
		v.AddConfigPath("/etc/netshaper")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NETSHAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// missing default config is fine, env vars may carry everything
		notFound := viper.ConfigFileNotFoundError{}
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading configuration: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the raw configuration against the struct tags. It is a
// separate step so the agent can merge command-line overrides into a
// loaded configuration before validating the result.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	return nil
}

// TrafficConfig converts the raw configuration into a validated
// shaper.TrafficConfig.
func (c *Config) TrafficConfig() (shaper.TrafficConfig, error) {
	protocol, err := shaper.ParseProtocol(c.Protocol)
	if err != nil {
		return shaper.TrafficConfig{}, err
	}

	var ports *shaper.PortRange
	if c.TargetPorts != nil {
		ports = &shaper.PortRange{
			Low:  c.TargetPorts.Low,
			High: c.TargetPorts.High,
		}
	}

	return shaper.NewTrafficConfig(
		c.PacketLossPercent,
		c.LatencyMS,
		c.BandwidthBPS,
		protocol,
		c.TargetAddress,
		ports,
	)
}

// ReportWriter returns the writer selected by the report section, or nil
// when reporting is disabled.
func (c *Config) ReportWriter() *shaper.ReportWriter {
	switch c.Report.Output {
	case "stdout":
		return shaper.NewStdoutReportWriter()
	case "file":
		return shaper.NewFileReportWriter(c.Report.Path)
	default:
		return nil
	}
}
