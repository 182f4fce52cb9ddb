// Package ms5611 provides a driver for the MS5611 barometric pressure and
// temperature sensor. The sensor digitizes one quantity at a time, so the
// driver keeps a conversion permanently in flight and alternates between the
// two halves of a measurement cycle:
//
//	d.Tick()   // one half-cycle: read the pending ADC value, start the other conversion
//	d.Run(ctx) // drives Tick at the configured period
//
// Tick is the producer side and never blocks; it stands in for a hardware
// timer interrupt. The consumer polls d.DataReady() and calls d.Update() to
// snapshot the latest raw pair and recompute compensated values:
//
//	if d.DataReady() {
//	    d.Update()
//	    t, p := d.Temperature(), d.Pressure()
//	}
//
// Temperature, Pressure, Altitude and Update must all be called from the
// same (single) consumer goroutine.
//
// The compensation follows the manufacturer's reference algorithm including
// the second-order corrections below 20 °C; all overflow-prone intermediate
// products are carried in 64-bit arithmetic.
package ms5611

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"
)

// Errors returned by the driver.
var (
	ErrBadCalibration = errors.New("ms5611: invalid calibration prom")
)

// Config controls sampling behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x77 if zero.
	Address uint16
	// OSR is the oversampling ratio for both conversions. Default OSR4096.
	OSR OSR
	// SamplePeriod is the interval between Tick invocations in Run.
	// It MUST exceed OSR.ConversionTime(): the driver does not detect a
	// period shorter than the conversion and will read garbage ADC values.
	// Default 10 ms.
	SamplePeriod time.Duration
}

// Device wraps an I2C connection to an MS5611 device.
type Device struct {
	bus  drivers.I2C
	addr uint16
	cfg  Config

	// PROM image: factory data, C1..C6, CRC. Immutable after Configure.
	prom       [promWords]uint16
	calibrated bool

	// Producer/consumer handoff. mu guards d1, d2 and step; the producer
	// (Tick) never waits for it, see sampler.go.
	mu       sync.Mutex
	d1       uint32 // raw pressure
	d2       uint32 // raw temperature
	step     sampleStep
	newData  atomic.Bool
	deferred atomic.Bool
	rearm    chan struct{}

	busFaults atomic.Uint32

	// Compensated values, owned by the consumer goroutine.
	compTemp  float64
	compPress float64

	wbuf [1]byte
	rbuf [3]byte
}

// New creates a new MS5611 connection. The I2C bus must already be
// configured. This function only creates the Device object; it does not
// touch the device.
func New(bus drivers.I2C) *Device {
	return &Device{
		bus:   bus,
		addr:  Address,
		rearm: make(chan struct{}, 1),
	}
}

// Configure resets the device, loads and verifies the calibration PROM and
// starts the first conversion so that sampling may begin. The calibration
// read happens once; a second Configure reuses the loaded coefficients and
// only re-primes the conversion pipeline.
//
// Sampling itself starts when the caller runs d.Run (or wires d.Tick to its
// own periodic timer).
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.addr = cfg.Address
	}
	if cfg.OSR == 0 {
		cfg.OSR = OSR4096
	}
	if cfg.SamplePeriod <= 0 {
		cfg.SamplePeriod = 10 * time.Millisecond
	}
	d.cfg = cfg

	if !d.calibrated {
		if err := d.command(cmdReset); err != nil {
			return err
		}
		time.Sleep(resetSettle)

		for i := 0; i < promWords; i++ {
			v, err := d.readPROMWord(i)
			if err != nil {
				return err
			}
			d.prom[i] = v
		}
		if !promValid(&d.prom) {
			return ErrBadCalibration
		}
		d.calibrated = true
	}

	d.step = awaitTemperatureRead
	d.newData.Store(false)
	d.deferred.Store(false)

	// Prime the pipeline: the first step expects a finished pressure
	// conversion in the ADC.
	if err := d.command(cmdConvD1 | d.cfg.OSR.cmdBits()); err != nil {
		return err
	}
	time.Sleep(primeSettle)
	return nil
}

// Coefficients returns the calibration coefficients C1..C6.
func (d *Device) Coefficients() [6]uint16 {
	var c [6]uint16
	copy(c[:], d.prom[1:7])
	return c
}

// DataReady reports whether a complete raw pressure/temperature pair has
// been produced since the last Update.
func (d *Device) DataReady() bool { return d.newData.Load() }

// BusFaults returns the number of bus transactions that failed inside
// sampling steps. A failed read leaves the previous raw value in place, so
// a rising count means readings may be stale.
func (d *Device) BusFaults() uint32 { return d.busFaults.Load() }

// Update takes an atomic snapshot of the latest raw sample pair and
// recomputes the compensated temperature and pressure. Consumer side only.
func (d *Device) Update() {
	d1, d2 := d.snapshot()
	temp, p := compensate(d.Coefficients(), d1, d2)
	d.compTemp = float64(temp) / 100
	d.compPress = (float64(p) / 32768) / 100
}

// Temperature returns the last compensated temperature in °C.
func (d *Device) Temperature() float64 { return d.compTemp }

// Pressure returns the last compensated pressure in hPa.
func (d *Device) Pressure() float64 { return d.compPress }

// Altitude returns the altitude in metres derived from the last compensated
// pressure and the given sea-level reference pressure in hPa.
func (d *Device) Altitude(seaLevel float64) float64 {
	return AltitudeAt(d.compPress, seaLevel)
}

// Run drives the sampler until ctx is done, invoking Tick once per sample
// period. It stands in for the hardware timer interrupt of an on-MCU
// deployment; such deployments may skip Run and call Tick from their own
// timer callback instead.
func (d *Device) Run(ctx context.Context) {
	t := time.NewTimer(d.cfg.SamplePeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.rearm:
			// A deferred step ran at snapshot release; start the next
			// period from that point.
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
			t.Reset(d.cfg.SamplePeriod)
		case <-t.C:
			d.Tick()
			t.Reset(d.cfg.SamplePeriod)
		}
	}
}

// ---- bus transactions ----

func (d *Device) command(cmd byte) error {
	d.wbuf[0] = cmd
	return d.bus.Tx(d.addr, d.wbuf[:1], nil)
}

func (d *Device) readPROMWord(i int) (uint16, error) {
	d.wbuf[0] = cmdPROM + byte(i)*2
	if err := d.bus.Tx(d.addr, d.wbuf[:1], d.rbuf[:2]); err != nil {
		return 0, err
	}
	return uint16(d.rbuf[0])<<8 | uint16(d.rbuf[1]), nil
}

// readADC fetches the pending 24-bit conversion result.
func (d *Device) readADC() (uint32, error) {
	d.wbuf[0] = cmdADCRead
	if err := d.bus.Tx(d.addr, d.wbuf[:1], d.rbuf[:3]); err != nil {
		return 0, err
	}
	return uint32(d.rbuf[0])<<16 | uint32(d.rbuf[1])<<8 | uint32(d.rbuf[2]), nil
}
