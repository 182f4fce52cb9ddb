package ms5611

import "math"

// DefaultSeaLevelPressure is the ICAO standard atmosphere reference in hPa.
const DefaultSeaLevelPressure = 1013.25

// compensate maps the calibration coefficients C1..C6 and a raw sample pair
// (d1 raw pressure, d2 raw temperature) to the compensated temperature in
// hundredths of °C and a pressure value still scaled by 2^15 (dividing by
// 32768 and then 100 yields hPa).
//
// This is the manufacturer's reference algorithm, including the
// second-order corrections below 20.00 °C and the extra terms below
// -15.00 °C. Every product that can exceed 32 bits (C6*dT, C4*dT, C3*dT,
// D1*SENS and the squares) is carried in int64; narrower intermediates
// silently corrupt results at temperature extremes.
//
// Coefficient sanity is not checked here: an all-zero coefficient set
// produces plausible-looking but wrong output. Configure rejects such PROM
// content up front.
func compensate(c [6]uint16, d1, d2 uint32) (temp, p int64) {
	dT := int64(d2) - int64(c[4])<<8
	temp = 2000 + (int64(c[5])*dT)>>23
	off := int64(c[1])<<16 + (int64(c[3])*dT)>>7
	sens := int64(c[0])<<15 + (int64(c[2])*dT)>>8

	if temp < 2000 {
		t2 := (dT * dT) >> 31
		sq := (temp - 2000) * (temp - 2000)
		off2 := (5 * sq) >> 1
		sens2 := (5 * sq) >> 2
		if temp < -1500 {
			e := (temp + 1500) * (temp + 1500)
			off2 += 7 * e
			sens2 += (11 * e) >> 1
		}
		temp -= t2
		off -= off2
		sens -= sens2
	}

	p = (int64(d1)*sens)>>21 - off
	return temp, p
}

// AltitudeAt converts a measured pressure to an altitude in metres above
// the given sea-level reference, both in hPa, using the standard-atmosphere
// barometric formula. Strictly decreasing in pressure.
func AltitudeAt(pressure, seaLevel float64) float64 {
	return (288.15 / 0.0065) * (1 - math.Pow(pressure/seaLevel, 1/5.25529))
}
