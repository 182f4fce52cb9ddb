// Package baro runs the barometric sensing pipeline: it owns the MS5611
// device, drives its sampler, polls for completed raw pairs, and fans the
// compensated readings out on the local bus. Pull-style consumers
// (exporters) read the cached snapshot instead of subscribing.
package baro

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"barocode-go/bus"
	"barocode-go/drivers/ms5611"
	"barocode-go/errcode"
	"barocode-go/types"
	"barocode-go/x/timex"
)

// Topics published by the service. Value and info topics are retained so a
// late subscriber still sees the current reading.
func TopicValue(kind types.Kind) bus.Topic { return bus.T("baro", "value", string(kind)) }
func TopicInfo() bus.Topic                 { return bus.T("baro", "info") }
func TopicState() bus.Topic                { return bus.T("baro", "state") }

// Config centralises service settings. All fields are optional.
type Config struct {
	// Sample is handed to the driver's Configure.
	Sample ms5611.Config
	// PollInterval is the consumer cadence for checking DataReady.
	// Default 25 ms (a new pair completes every two sample periods).
	PollInterval time.Duration
	// SeaLevelPressure in hPa for altitude derivation.
	// Default 1013.25 (standard atmosphere).
	SeaLevelPressure float64
	// BusName is informational, published in the retained info document.
	BusName string
}

// Snapshot is one compensated reading set.
type Snapshot struct {
	Temperature float64 // °C
	Pressure    float64 // hPa
	Altitude    float64 // m above the configured reference
	TsMs        int64
	BusFaults   uint32
}

type Service struct {
	dev  *ms5611.Device
	conn *bus.Connection
	cfg  Config

	mu   sync.RWMutex
	snap Snapshot
	have bool
}

func New(dev *ms5611.Device, conn *bus.Connection, cfg Config) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 25 * time.Millisecond
	}
	if cfg.SeaLevelPressure == 0 {
		cfg.SeaLevelPressure = ms5611.DefaultSeaLevelPressure
	}
	return &Service{dev: dev, conn: conn, cfg: cfg}
}

// Run configures the device, starts its sampling loop and polls for
// completed pairs until ctx is done. Configuration failures (including a
// rejected calibration PROM) are returned after being published as state.
func (s *Service) Run(ctx context.Context) error {
	if err := s.dev.Configure(s.cfg.Sample); err != nil {
		s.publishState("init", codeFor(err))
		return err
	}

	addr := s.cfg.Sample.Address
	if addr == 0 {
		addr = ms5611.Address
	}
	s.conn.Publish(s.conn.NewMessage(TopicInfo(), types.Info{
		SchemaVersion: 1,
		Driver:        "ms5611",
		Addr:          addr,
		Bus:           s.cfg.BusName,
	}, true))
	s.publishState("ready", errcode.OK)

	go s.dev.Run(ctx)

	tick := time.NewTicker(s.cfg.PollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", errcode.OK)
			return nil
		case <-tick.C:
			if s.dev.DataReady() {
				s.refresh()
			}
		}
	}
}

// refresh snapshots the device and publishes the readings.
func (s *Service) refresh() {
	s.dev.Update()
	now := timex.NowMs()
	snap := Snapshot{
		Temperature: s.dev.Temperature(),
		Pressure:    s.dev.Pressure(),
		Altitude:    s.dev.Altitude(s.cfg.SeaLevelPressure),
		TsMs:        now,
		BusFaults:   s.dev.BusFaults(),
	}

	s.mu.Lock()
	s.snap = snap
	s.have = true
	s.mu.Unlock()

	s.conn.Publish(s.conn.NewMessage(TopicValue(types.KindTemperature), types.TemperatureValue{
		CentiC: int32(math.Round(snap.Temperature * 100)),
		TsMs:   now,
	}, true))
	s.conn.Publish(s.conn.NewMessage(TopicValue(types.KindPressure), types.PressureValue{
		CentiHPa: int64(math.Round(snap.Pressure * 100)),
		TsMs:     now,
	}, true))
	s.conn.Publish(s.conn.NewMessage(TopicValue(types.KindAltitude), types.AltitudeValue{
		Cm:   int64(math.Round(snap.Altitude * 100)),
		TsMs: now,
	}, true))
}

func (s *Service) publishState(level string, code errcode.Code) {
	s.conn.Publish(s.conn.NewMessage(TopicState(), types.State{
		Level:     level,
		Status:    string(code),
		BusFaults: s.dev.BusFaults(),
		TS:        timex.NowMs(),
	}, true))
}

// codeFor maps driver errors to stable bus-facing codes.
func codeFor(err error) errcode.Code {
	switch {
	case err == nil:
		return errcode.OK
	case errors.Is(err, ms5611.ErrBadCalibration):
		return errcode.BadCalibration
	default:
		return errcode.Of(err)
	}
}

// Latest returns the most recent snapshot, if any reading has completed.
func (s *Service) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.have
}
