package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
)

type dpiUnits uint8

const (
	dpiNoUnits dpiUnits = iota
	dpiPxPerInch
	dpiPxPerCm
)

// ensureJFIF inserts JFIF APP0 segment with density information right after
// SOI marker unless data already starts with one. Go jpeg encoder does not
// write it, some viewers assume 72 dpi then.
func ensureJFIF(data []byte, units dpiUnits, xdensity, ydensity uint16) ([]byte, error) {
	if len(data) < 4 {
		return nil, errors.New("jpeg too small")
	}
	if data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errors.New("not a jpeg")
	}
	if data[2] == 0xFF && data[3] == 0xE0 {
		return data, nil
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(data)+18))
	buf.Write(data[:2])
	buf.Write([]byte{0xFF, 0xE0})
	_ = binary.Write(buf, binary.BigEndian, uint16(16))
	buf.Write([]byte{'J', 'F', 'I', 'F', 0x00, 0x01, 0x02})
	buf.WriteByte(byte(units))
	_ = binary.Write(buf, binary.BigEndian, xdensity)
	_ = binary.Write(buf, binary.BigEndian, ydensity)
	buf.Write([]byte{0, 0}) // no thumbnail
	buf.Write(data[2:])
	return buf.Bytes(), nil
}
