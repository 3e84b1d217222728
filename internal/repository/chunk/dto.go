package chunk

import (
	"encoding/binary"
	"math"
)

// vectorToBytes encodes a vector as little-endian FLOAT32, the layout FT VECTOR fields expect.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
