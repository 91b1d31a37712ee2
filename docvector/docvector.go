// Package docvector implements the on-disk codec for a document's sparse
// vector plus an arbitrary caller-defined payload: [f32 length][u16
// n_dims][n_dims x (u24 dim, f32 weight)][payload bytes]. The payload type
// is generic; callers supply their own encode/decode callbacks rather than
// satisfying an interface, since the payload format is entirely theirs.
package docvector

import (
	"encoding/binary"
	"fmt"
	"math"

	"vsmindex/sparsevec"
)

// maxDim is the largest dimension id representable in the 3-byte (u24)
// field used by the wire format.
const maxDim = 1<<24 - 1

// Encoder writes a payload value's bytes. It must not write a length
// prefix; DocumentVector's own framing carries no payload length, so the
// payload is expected to run to the end of the record.
type Encoder[D any] func(value D) ([]byte, error)

// Decoder reads a payload value back out of the trailing bytes of a
// DocumentVector record.
type Decoder[D any] func(data []byte) (D, error)

// DocumentVector pairs a sparse vector with an arbitrary payload, such as
// a document id or external key.
type DocumentVector[D any] struct {
	Vector  sparsevec.SparseVector
	Payload D
}

// New constructs a DocumentVector from a raw (unsorted, undeduplicated)
// pair list and a payload.
func New[D any](pairs []sparsevec.Pair, payload D) DocumentVector[D] {
	return DocumentVector[D]{Vector: sparsevec.NewRaw(pairs), Payload: payload}
}

// Encode writes the document vector's exact byte layout, delegating the
// payload's own bytes to encodePayload.
func Encode[D any](dv DocumentVector[D], encodePayload Encoder[D]) ([]byte, error) {
	pairs := dv.Vector.Pairs()
	if len(pairs) > math.MaxUint16 {
		return nil, fmt.Errorf("docvector: too many dimensions (%d > %d)", len(pairs), math.MaxUint16)
	}

	payloadBytes, err := encodePayload(dv.Payload)
	if err != nil {
		return nil, fmt.Errorf("docvector: encode payload: %w", err)
	}

	buf := make([]byte, 0, 4+2+len(pairs)*7+len(payloadBytes))
	buf = appendFloat32(buf, dv.Vector.Length())
	buf = appendUint16(buf, uint16(len(pairs)))
	for _, p := range pairs {
		if p.Dim > maxDim {
			return nil, fmt.Errorf("docvector: dimension %d exceeds 24-bit range", p.Dim)
		}
		buf = appendUint24(buf, p.Dim)
		buf = appendFloat32(buf, p.Weight)
	}
	buf = append(buf, payloadBytes...)
	return buf, nil
}

// Decode parses bytes written by Encode, using decodePayload for the
// trailing payload bytes. Dimensions must arrive strictly ascending with
// no duplicates; any other order is a corrupt record.
func Decode[D any](data []byte, decodePayload Decoder[D]) (DocumentVector[D], error) {
	var zero DocumentVector[D]

	if len(data) < 6 {
		return zero, fmt.Errorf("docvector: record too short (%d bytes)", len(data))
	}
	length := math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	nDims := binary.LittleEndian.Uint16(data[4:6])

	pos := 6
	pairs := make([]sparsevec.Pair, nDims)
	var prevDim uint32
	for i := 0; i < int(nDims); i++ {
		if pos+7 > len(data) {
			return zero, fmt.Errorf("docvector: truncated dimension entry %d", i)
		}
		dim := readUint24(data[pos : pos+3])
		weight := math.Float32frombits(binary.LittleEndian.Uint32(data[pos+3 : pos+7]))
		pos += 7

		if i > 0 && dim <= prevDim {
			return zero, fmt.Errorf("docvector: dimensions not strictly ascending at entry %d (dim %d after %d)", i, dim, prevDim)
		}
		pairs[i] = sparsevec.Pair{Dim: dim, Weight: weight}
		prevDim = dim
	}

	payload, err := decodePayload(data[pos:])
	if err != nil {
		return zero, fmt.Errorf("docvector: decode payload: %w", err)
	}

	return DocumentVector[D]{
		Vector:  sparsevec.NewPreSorted(pairs, length),
		Payload: payload,
	}, nil
}

func appendFloat32(buf []byte, v float32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	return append(buf, tmp[:]...)
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint24(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16))
}

func readUint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
