package shaper

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Event is one shaping event record, emitted whenever shaping parameters
// take effect.
type Event struct {
	Time              time.Time `json:"time"`
	BandwidthBPS      int64     `json:"bandwidth_bps"`
	LatencyMS         int       `json:"latency_ms"`
	PacketLossPercent float64   `json:"packet_loss_percent"`
}

// ReportWriter emits shaping events as JSON lines.
type ReportWriter struct {
	mu sync.Mutex
	w  io.Writer

	now func() time.Time
}

// NewReportWriter returns a ReportWriter emitting to w.
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{
		w:   w,
		now: time.Now,
	}
}

// NewStdoutReportWriter returns a ReportWriter emitting to stdout.
func NewStdoutReportWriter() *ReportWriter {
	return NewReportWriter(os.Stdout)
}

// NewFileReportWriter returns a ReportWriter emitting to the given file,
// rotated at 10 MB with at most 5 old files kept.
func NewFileReportWriter(path string) *ReportWriter {
	return NewReportWriter(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 5,
	})
}

// Report writes one event record with the current time.
func (r *ReportWriter) Report(bandwidthBPS int64, latencyMS int, lossPercent float64) error {
	line, err := json.Marshal(Event{
		Time:              r.now(),
		BandwidthBPS:      bandwidthBPS,
		LatencyMS:         latencyMS,
		PacketLossPercent: lossPercent,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.w.Write(append(line, '\n'))

	return err
}
