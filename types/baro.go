package types

// Bus payload shapes for the barometric pipeline. Values are fixed-point so
// payloads stay exact and cheap to serialise.

// Kind is a capability/value kind used in topic paths.
type Kind string

const (
	KindTemperature Kind = "temperature"
	KindPressure    Kind = "pressure"
	KindAltitude    Kind = "altitude"
)

// Info envelope the sensor exposes once (retained).
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"` // "ms5611"
	Addr          uint16 `json:"addr"`   // I2C address
	Bus           string `json:"bus"`    // "/dev/i2c-1", "i2c0", ...
}

type TemperatureValue struct {
	// Hundredths of °C (e.g. 2007 => 20.07 °C).
	CentiC int32 `json:"centi_c"`
	TsMs   int64 `json:"ts_ms"`
}

type PressureValue struct {
	// Hundredths of hPa (e.g. 100009 => 1000.09 hPa).
	CentiHPa int64 `json:"centi_hpa"`
	TsMs     int64 `json:"ts_ms"`
}

type AltitudeValue struct {
	// Centimetres above the configured sea-level reference.
	Cm   int64 `json:"cm"`
	TsMs int64 `json:"ts_ms"`
}

// State is the sensor pipeline state (retained).
type State struct {
	Level     string `json:"level"`  // "init", "ready", "stopped"
	Status    string `json:"status"` // errcode.Code string
	BusFaults uint32 `json:"bus_faults,omitempty"`
	TS        int64  `json:"ts_ms"`
}
