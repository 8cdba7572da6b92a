package binutil

func ParseUint16BigEndian(b []byte) uint16 {
	return uint16(b[0])<<8 + uint16(b[1])
}

// WordsBigEndian splits a register payload into 16 bit words. A trailing
// odd byte is dropped.
func WordsBigEndian(b []byte) []uint16 {
	words := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		words = append(words, ParseUint16BigEndian(b[i:]))
	}
	return words
}
