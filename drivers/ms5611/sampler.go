package ms5611

// Two-phase sampling state machine and the producer/consumer handoff.
//
// The producer (Tick) runs in timer context and must never wait: when the
// consumer is inside its snapshot it marks the step as deferred and returns
// without touching the bus or shared state. The consumer then executes the
// missed step on the producer's behalf while releasing the snapshot and
// re-arms the period timer, so each timer period still yields exactly one
// step.

type sampleStep uint8

const (
	// awaitTemperatureRead: the ADC holds a finished pressure conversion
	// (D1); reading it frees the ADC for the temperature conversion this
	// step starts.
	awaitTemperatureRead sampleStep = iota
	// awaitPressureRead: the ADC holds a finished temperature conversion
	// (D2); this step reads it, starts the next pressure conversion and
	// completes the raw pair.
	awaitPressureRead
)

// Tick runs one sampling step. It is the producer entry point and never
// blocks: if the consumer currently holds the snapshot lock the step is
// deferred and executed at release.
//
// Tick must be invoked at a period longer than the configured conversion
// time; a faster caller reads ADC garbage. This is a precondition, not a
// detected error.
func (d *Device) Tick() {
	if !d.mu.TryLock() {
		d.deferred.Store(true)
		return
	}
	d.stepLocked()
	d.mu.Unlock()
}

// stepLocked performs one half-cycle of the conversion pipeline.
// Callers hold d.mu.
//
// A failed ADC read keeps the previous raw value (silent staleness, counted
// in busFaults); there is no retry within a step.
func (d *Device) stepLocked() {
	switch d.step {
	case awaitTemperatureRead:
		if v, err := d.readADC(); err == nil {
			d.d1 = v
		} else {
			d.busFaults.Add(1)
		}
		if err := d.command(cmdConvD2 | d.cfg.OSR.cmdBits()); err != nil {
			d.busFaults.Add(1)
		}
		d.step = awaitPressureRead
	case awaitPressureRead:
		if v, err := d.readADC(); err == nil {
			d.d2 = v
		} else {
			d.busFaults.Add(1)
		}
		if err := d.command(cmdConvD1 | d.cfg.OSR.cmdBits()); err != nil {
			d.busFaults.Add(1)
		}
		d.newData.Store(true)
		d.step = awaitTemperatureRead
	}
}

// snapshot copies the raw sample pair and clears the new-data flag, all
// atomically with respect to the producer. If a tick fired while the lock
// was held, the missed step runs here and the period timer is re-armed so
// the next real tick is a full period away.
func (d *Device) snapshot() (d1, d2 uint32) {
	d.mu.Lock()
	d1, d2 = d.d1, d.d2
	d.newData.Store(false)
	if d.deferred.Swap(false) {
		d.stepLocked()
		select {
		case d.rearm <- struct{}{}:
		default:
		}
	}
	d.mu.Unlock()
	return d1, d2
}
