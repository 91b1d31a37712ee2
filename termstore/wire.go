package termstore

import (
	"encoding/binary"
	"fmt"
	"io"
)

// writeUint32Slice writes [u32 LE count][u32 LE value]*count.
func writeUint32Slice(w io.Writer, values []uint32) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(values))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, v := range values {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write value: %w", err)
		}
	}
	return nil
}

func readUint32Slice(r io.Reader) ([]uint32, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	values := make([]uint32, count)
	for i := range values {
		if err := binary.Read(r, binary.LittleEndian, &values[i]); err != nil {
			return nil, fmt.Errorf("read value %d: %w", i, err)
		}
	}
	return values, nil
}
