package ms5611

import "time"

// I2C addresses. CSB pulled low selects 0x77, high selects 0x76.
const (
	Address    = 0x77
	AddressAlt = 0x76
)

// Commands (per datasheet).
const (
	cmdReset   = 0x1E
	cmdADCRead = 0x00
	cmdConvD1  = 0x40 // pressure conversion, OR'd with OSR bits
	cmdConvD2  = 0x50 // temperature conversion, OR'd with OSR bits
	cmdPROM    = 0xA0 // PROM word n at cmdPROM + 2n
)

// promWords is the full PROM layout: factory data, C1..C6, CRC.
const promWords = 8

// OSR is the ADC oversampling ratio. Higher ratios give better resolution
// at the cost of a longer conversion; the sample period must always exceed
// the conversion time.
type OSR uint16

const (
	OSR256  OSR = 256
	OSR512  OSR = 512
	OSR1024 OSR = 1024
	OSR2048 OSR = 2048
	OSR4096 OSR = 4096
)

// cmdBits returns the OSR field of a conversion command.
func (o OSR) cmdBits() byte {
	switch o {
	case OSR256:
		return 0x00
	case OSR512:
		return 0x02
	case OSR1024:
		return 0x04
	case OSR2048:
		return 0x06
	default:
		return 0x08
	}
}

// ConversionTime returns the maximum ADC conversion time for this OSR
// (datasheet worst case).
func (o OSR) ConversionTime() time.Duration {
	switch o {
	case OSR256:
		return 600 * time.Microsecond
	case OSR512:
		return 1170 * time.Microsecond
	case OSR1024:
		return 2280 * time.Microsecond
	case OSR2048:
		return 4540 * time.Microsecond
	default:
		return 9040 * time.Microsecond
	}
}

// Fixed device delays, used during Configure only.
const (
	resetSettle = 3 * time.Millisecond  // PROM reload after reset
	primeSettle = 10 * time.Millisecond // first conversion before sampling starts
)
