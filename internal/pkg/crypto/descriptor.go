package crypto

import (
	"encoding/binary"
	"errors"
	"math"
)

var ErrMalformedDescriptor = errors.New("descriptor payload is malformed")

// EncodeDescriptor serializes a descriptor to the little-endian byte layout
// that gets encrypted. The dimension is carried outside the ciphertext so the
// stored record stays self-describing.
func EncodeDescriptor(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func DecodeDescriptor(data []byte, dimension int) ([]float64, error) {
	if dimension <= 0 || len(data) != 8*dimension {
		return nil, ErrMalformedDescriptor
	}
	values := make([]float64, dimension)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return values, nil
}
