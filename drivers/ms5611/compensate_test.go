package ms5611

import (
	"math/big"
	"math/rand"
	"testing"
)

// Calibration coefficients from the manufacturer's worked example.
var refCoeff = [6]uint16{40127, 36924, 23317, 23282, 33464, 28312}

func TestCompensateReferenceVector(t *testing.T) {
	// Worked example from the datasheet: 20.07 °C, 1000.09 mbar.
	temp, p := compensate(refCoeff, 9085466, 8569150)
	if temp != 2007 {
		t.Errorf("temp = %d, want 2007", temp)
	}
	if got := p >> 15; got != 100009 {
		t.Errorf("p>>15 = %d, want 100009", got)
	}
}

func TestCompensateSecondOrder(t *testing.T) {
	cases := []struct {
		name    string
		d1, d2  uint32
		temp, p int64
	}{
		// Above 20 °C: no correction terms.
		{"nominal", 9085466, 8569150, 2007, 3277097212},
		// Below 20 °C: T2/OFF2/SENS2 applied once.
		{"low", 9085466, 8000000, -62, 3145368371},
		// Below -15 °C: the extra terms applied once on top.
		{"verylow", 9085466, 6000000, -9731, 2063050858},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			temp, p := compensate(refCoeff, tc.d1, tc.d2)
			if temp != tc.temp || p != tc.p {
				t.Errorf("compensate(%d, %d) = (%d, %d), want (%d, %d)",
					tc.d1, tc.d2, temp, p, tc.temp, tc.p)
			}
		})
	}
}

// TestCompensateMatchesWideReference checks the int64 implementation against
// an arbitrary-precision rendition of the same algorithm across the full
// input domain. Any intermediate narrower than required shows up here as a
// divergence at extreme inputs.
func TestCompensateMatchesWideReference(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	check := func(c [6]uint16, d1, d2 uint32) {
		temp, p := compensate(c, d1, d2)
		wantTemp, wantP := compensateBig(c, d1, d2)
		if temp != wantTemp || p != wantP {
			t.Fatalf("compensate(%v, %d, %d) = (%d, %d), reference (%d, %d)",
				c, d1, d2, temp, p, wantTemp, wantP)
		}
	}

	// Domain corners.
	corners := []uint16{0, 1, 0x7FFF, 0x8000, 0xFFFF}
	adc := []uint32{0, 1, 1 << 23, 1<<24 - 1}
	for _, cv := range corners {
		for _, d1 := range adc {
			for _, d2 := range adc {
				check([6]uint16{cv, cv, cv, cv, cv, cv}, d1, d2)
			}
		}
	}

	// Random sweep.
	for i := 0; i < 5000; i++ {
		var c [6]uint16
		for j := range c {
			c[j] = uint16(rng.Uint32())
		}
		check(c, rng.Uint32()&0xFFFFFF, rng.Uint32()&0xFFFFFF)
	}
}

// compensateBig mirrors compensate with math/big arithmetic. big.Int Rsh on
// negative values floors like an arithmetic shift, matching int64 semantics.
func compensateBig(c [6]uint16, d1, d2 uint32) (int64, int64) {
	bi := func(v int64) *big.Int { return big.NewInt(v) }
	dT := new(big.Int).Sub(bi(int64(d2)), new(big.Int).Lsh(bi(int64(c[4])), 8))
	temp := new(big.Int).Add(bi(2000),
		new(big.Int).Rsh(new(big.Int).Mul(bi(int64(c[5])), dT), 23))
	off := new(big.Int).Add(new(big.Int).Lsh(bi(int64(c[1])), 16),
		new(big.Int).Rsh(new(big.Int).Mul(bi(int64(c[3])), dT), 7))
	sens := new(big.Int).Add(new(big.Int).Lsh(bi(int64(c[0])), 15),
		new(big.Int).Rsh(new(big.Int).Mul(bi(int64(c[2])), dT), 8))

	if temp.Cmp(bi(2000)) < 0 {
		t2 := new(big.Int).Rsh(new(big.Int).Mul(dT, dT), 31)
		dt := new(big.Int).Sub(temp, bi(2000))
		sq := new(big.Int).Mul(dt, dt)
		off2 := new(big.Int).Rsh(new(big.Int).Mul(bi(5), sq), 1)
		sens2 := new(big.Int).Rsh(new(big.Int).Mul(bi(5), sq), 2)
		if temp.Cmp(bi(-1500)) < 0 {
			de := new(big.Int).Add(temp, bi(1500))
			e := new(big.Int).Mul(de, de)
			off2.Add(off2, new(big.Int).Mul(bi(7), e))
			sens2.Add(sens2, new(big.Int).Rsh(new(big.Int).Mul(bi(11), e), 1))
		}
		temp.Sub(temp, t2)
		off.Sub(off, off2)
		sens.Sub(sens, sens2)
	}

	p := new(big.Int).Sub(
		new(big.Int).Rsh(new(big.Int).Mul(bi(int64(d1)), sens), 21), off)
	return temp.Int64(), p.Int64()
}

func TestAltitudeMonotonic(t *testing.T) {
	if a := AltitudeAt(DefaultSeaLevelPressure, DefaultSeaLevelPressure); a != 0 {
		t.Errorf("altitude at reference pressure = %v, want 0", a)
	}
	prev := AltitudeAt(300, DefaultSeaLevelPressure)
	for p := 301.0; p <= 1100; p++ {
		a := AltitudeAt(p, DefaultSeaLevelPressure)
		if a >= prev {
			t.Fatalf("altitude not strictly decreasing at %v hPa: %v >= %v", p, a, prev)
		}
		prev = a
	}
}
