package ms5611

// Calibration PROM validation.
//
// Word 0 is factory data, words 1..6 are C1..C6 and the low nibble of word
// 7 is a 4-bit CRC over the whole image (manufacturer app note AN520). A
// device that never answered leaves the image all-zero (or all-ones on some
// bus failures); both would compensate to plausible but wrong readings, so
// they are rejected alongside a CRC mismatch.

func promValid(p *[promWords]uint16) bool {
	var zero, ones int
	for _, w := range p[1:7] {
		switch w {
		case 0x0000:
			zero++
		case 0xFFFF:
			ones++
		}
	}
	if zero == 6 || ones == 6 {
		return false
	}
	return promCRC(p) == uint8(p[7]&0x000F)
}

// promCRC computes the 4-bit CRC of the PROM image per AN520.
func promCRC(p *[promWords]uint16) uint8 {
	var rem uint16
	crcWord := p[7]
	p[7] &= 0xFF00 // CRC nibble is excluded from its own computation
	for i := 0; i < promWords*2; i++ {
		if i%2 == 1 {
			rem ^= p[i>>1] & 0x00FF
		} else {
			rem ^= p[i>>1] >> 8
		}
		for bit := 8; bit > 0; bit-- {
			if rem&0x8000 != 0 {
				rem = rem<<1 ^ 0x3000
			} else {
				rem <<= 1
			}
		}
	}
	p[7] = crcWord
	return uint8(rem >> 12 & 0x000F)
}
