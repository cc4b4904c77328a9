package packstream

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Decoder reads PackStream values from an underlying byte source, one
// fully-assembled message's worth of bytes at a time (the chunked-framing
// reader hands Decoder a single reassembled message buffer).
type Decoder struct {
	r io.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// ReadValue reads one PackStream-encoded value, returning a Go-native
// representation: nil, bool, int64, float64, string, []byte, []any,
// map[string]any, or *Structure.
func (d *Decoder) ReadValue() (any, error) {
	marker, err := d.readByte()
	if err != nil {
		return nil, err
	}
	return d.readValueAfterMarker(marker)
}

func (d *Decoder) readValueAfterMarker(marker byte) (any, error) {
	switch {
	case marker <= tinyIntPositiveMax:
		return int64(marker), nil
	case marker >= tinyIntNegativeMin:
		return int64(int8(marker)), nil
	case marker == markerNull:
		return nil, nil
	case marker == markerFalse:
		return false, nil
	case marker == markerTrue:
		return true, nil
	case marker == markerFloat64:
		return d.readFloat()
	case marker == markerInt8:
		b, err := d.readByte()
		return int64(int8(b)), err
	case marker == markerInt16:
		return d.readSizedInt(2)
	case marker == markerInt32:
		return d.readSizedInt(4)
	case marker == markerInt64:
		return d.readSizedInt(8)
	case marker == markerBytes8:
		return d.readBytesSized(1)
	case marker == markerBytes16:
		return d.readBytesSized(2)
	case marker == markerBytes32:
		return d.readBytesSized(4)
	case marker&0xF0 == markerTinyStringBase:
		return d.readStringN(int(marker & 0x0F))
	case marker == markerString8:
		return d.readStringSized(1)
	case marker == markerString16:
		return d.readStringSized(2)
	case marker == markerString32:
		return d.readStringSized(4)
	case marker&0xF0 == markerTinyListBase:
		return d.readListN(int(marker & 0x0F))
	case marker == markerList8:
		return d.readListSized(1)
	case marker == markerList16:
		return d.readListSized(2)
	case marker == markerList32:
		return d.readListSized(4)
	case marker&0xF0 == markerTinyMapBase:
		return d.readMapN(int(marker & 0x0F))
	case marker == markerMap8:
		return d.readMapSized(1)
	case marker == markerMap16:
		return d.readMapSized(2)
	case marker == markerMap32:
		return d.readMapSized(4)
	case marker&0xF0 == markerTinyStructBase:
		return d.readStructN(int(marker & 0x0F))
	case marker == markerStruct8:
		return d.readStructSized(1)
	case marker == markerStruct16:
		return d.readStructSized(2)
	default:
		return nil, fmt.Errorf("packstream: unknown marker 0x%02x", marker)
	}
}

func (d *Decoder) readByte() (byte, error) {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *Decoder) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Decoder) readFloat() (float64, error) {
	buf, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf)), nil
}

func (d *Decoder) readSizedInt(size int) (int64, error) {
	buf, err := d.readN(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 2:
		return int64(int16(binary.BigEndian.Uint16(buf))), nil
	case 4:
		return int64(int32(binary.BigEndian.Uint32(buf))), nil
	default:
		return int64(binary.BigEndian.Uint64(buf)), nil
	}
}

func (d *Decoder) readLength(sizeBytes int) (int, error) {
	buf, err := d.readN(sizeBytes)
	if err != nil {
		return 0, err
	}
	switch sizeBytes {
	case 1:
		return int(buf[0]), nil
	case 2:
		return int(binary.BigEndian.Uint16(buf)), nil
	default:
		return int(binary.BigEndian.Uint32(buf)), nil
	}
}

func (d *Decoder) readBytesSized(sizeBytes int) ([]byte, error) {
	n, err := d.readLength(sizeBytes)
	if err != nil {
		return nil, err
	}
	return d.readN(n)
}

func (d *Decoder) readStringN(n int) (string, error) {
	buf, err := d.readN(n)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *Decoder) readStringSized(sizeBytes int) (string, error) {
	n, err := d.readLength(sizeBytes)
	if err != nil {
		return "", err
	}
	return d.readStringN(n)
}

func (d *Decoder) readListN(n int) ([]any, error) {
	out := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *Decoder) readListSized(sizeBytes int) ([]any, error) {
	n, err := d.readLength(sizeBytes)
	if err != nil {
		return nil, err
	}
	return d.readListN(n)
}

func (d *Decoder) readMapN(n int) (map[string]any, error) {
	out := make(map[string]any, n)
	for i := 0; i < n; i++ {
		key, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		keyStr, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("packstream: map key must be a string, got %T", key)
		}
		val, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		out[keyStr] = val
	}
	return out, nil
}

func (d *Decoder) readMapSized(sizeBytes int) (map[string]any, error) {
	n, err := d.readLength(sizeBytes)
	if err != nil {
		return nil, err
	}
	return d.readMapN(n)
}

func (d *Decoder) readStructN(n int) (*Structure, error) {
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	fields, err := d.readListN(n)
	if err != nil {
		return nil, err
	}
	return &Structure{Tag: tag, Fields: fields}, nil
}

func (d *Decoder) readStructSized(sizeBytes int) (*Structure, error) {
	n, err := d.readLength(sizeBytes)
	if err != nil {
		return nil, err
	}
	return d.readStructN(n)
}
