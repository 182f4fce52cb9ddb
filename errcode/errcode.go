// Package errcode defines the short error identifiers the services publish
// on their state topics. A Code travels as a plain string on the bus and
// over MQTT, so consumers can switch on it without parsing error text.
package errcode

import "errors"

// Code identifies an error condition. It is comparable and implements
// error, so it can be returned directly or wrapped.
type Code string

func (c Code) Error() string { return string(c) }

// Codes published by the baro service and the MQTT bridge.
const (
	OK             Code = "ok"
	NotReady       Code = "not_ready"
	BadCalibration Code = "bad_calibration"
	BusFault       Code = "bus_fault"
	Stale          Code = "stale"
	Timeout        Code = "timeout"
	Unsupported    Code = "unsupported"

	Error Code = "error" // generic fallback
)

// E carries a Code together with the operation and cause, for callers that
// need more than the bare identifier.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts the Code carried anywhere in err's chain, defaulting to
// Error for errors without one and OK for nil.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}
