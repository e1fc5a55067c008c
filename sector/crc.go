package sector

// CRC-16/CCITT as used by IBM-style floppy formats: polynomial 0x1021,
// shifted MSB-first. The initial value is format-dependent and must be
// supplied by the caller; 0xFFFF is the common default but some
// double-density variants seed differently.

const (
	// CRCPoly is the CCITT generator polynomial.
	CRCPoly = 0x1021
	// DefaultCRCInit seeds the CRC for the common format variants.
	DefaultCRCInit = 0xFFFF
)

// CRC16Byte folds one byte into the running CRC.
func CRC16Byte(crc uint16, b byte) uint16 {
	crc ^= uint16(b) << 8
	for i := 0; i < 8; i++ {
		if crc&0x8000 != 0 {
			crc = (crc << 1) ^ CRCPoly
		} else {
			crc <<= 1
		}
	}
	return crc
}

// CRC16 folds a byte slice into the running CRC.
func CRC16(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = CRC16Byte(crc, b)
	}
	return crc
}
