package packstream

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encoder writes PackStream values to an underlying byte sink. A Bolt
// connection builds one message's bytes in a buffer via Encoder before
// handing the result to the chunked-framing writer, so Encoder itself
// has no notion of chunk boundaries.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteValue dispatches on v's Go type to the matching PackStream
// encoding. Supported types: nil, bool, every integer width, float32/64,
// string, []any, map[string]any, *Structure.
func (e *Encoder) WriteValue(v any) error {
	switch x := v.(type) {
	case nil:
		return e.writeByte(markerNull)
	case bool:
		return e.writeBool(x)
	case int:
		return e.writeInt(int64(x))
	case int8:
		return e.writeInt(int64(x))
	case int16:
		return e.writeInt(int64(x))
	case int32:
		return e.writeInt(int64(x))
	case int64:
		return e.writeInt(x)
	case uint:
		return e.writeInt(int64(x))
	case uint8:
		return e.writeInt(int64(x))
	case uint16:
		return e.writeInt(int64(x))
	case uint32:
		return e.writeInt(int64(x))
	case uint64:
		return e.writeInt(int64(x))
	case float32:
		return e.writeFloat(float64(x))
	case float64:
		return e.writeFloat(x)
	case string:
		return e.writeString(x)
	case []byte:
		return e.writeBytes(x)
	case []any:
		return e.writeList(x)
	case map[string]any:
		return e.writeMap(x)
	case *Structure:
		return e.writeStruct(x)
	default:
		return fmt.Errorf("packstream: unsupported value type %T", v)
	}
}

func (e *Encoder) writeByte(b byte) error {
	_, err := e.w.Write([]byte{b})
	return err
}

func (e *Encoder) writeBool(b bool) error {
	if b {
		return e.writeByte(markerTrue)
	}
	return e.writeByte(markerFalse)
}

func (e *Encoder) writeInt(n int64) error {
	switch {
	case n >= -16 && n <= tinyIntPositiveMax:
		return e.writeByte(byte(n))
	case n >= math.MinInt8 && n <= math.MaxInt8:
		return e.writeFixed(markerInt8, []byte{byte(n)})
	case n >= math.MinInt16 && n <= math.MaxInt16:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(n))
		return e.writeFixed(markerInt16, buf)
	case n >= math.MinInt32 && n <= math.MaxInt32:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(n))
		return e.writeFixed(markerInt32, buf)
	default:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(n))
		return e.writeFixed(markerInt64, buf)
	}
}

func (e *Encoder) writeFixed(marker byte, payload []byte) error {
	if err := e.writeByte(marker); err != nil {
		return err
	}
	_, err := e.w.Write(payload)
	return err
}

func (e *Encoder) writeFloat(f float64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return e.writeFixed(markerFloat64, buf)
}

func (e *Encoder) writeString(s string) error {
	b := []byte(s)
	n := len(b)
	switch {
	case n <= 15:
		if err := e.writeByte(byte(markerTinyStringBase + n)); err != nil {
			return err
		}
	case n <= 0xFF:
		if err := e.writeFixed(markerString8, []byte{byte(n)}); err != nil {
			return err
		}
		_, err := e.w.Write(b)
		return err
	case n <= 0xFFFF:
		hdr := make([]byte, 2)
		binary.BigEndian.PutUint16(hdr, uint16(n))
		if err := e.writeFixed(markerString16, hdr); err != nil {
			return err
		}
		_, err := e.w.Write(b)
		return err
	default:
		hdr := make([]byte, 4)
		binary.BigEndian.PutUint32(hdr, uint32(n))
		if err := e.writeFixed(markerString32, hdr); err != nil {
			return err
		}
		_, err := e.w.Write(b)
		return err
	}
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) writeBytes(b []byte) error {
	n := len(b)
	switch {
	case n <= 0xFF:
		if err := e.writeFixed(markerBytes8, []byte{byte(n)}); err != nil {
			return err
		}
	case n <= 0xFFFF:
		hdr := make([]byte, 2)
		binary.BigEndian.PutUint16(hdr, uint16(n))
		if err := e.writeFixed(markerBytes16, hdr); err != nil {
			return err
		}
	default:
		hdr := make([]byte, 4)
		binary.BigEndian.PutUint32(hdr, uint32(n))
		if err := e.writeFixed(markerBytes32, hdr); err != nil {
			return err
		}
	}
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) writeList(items []any) error {
	if err := e.writeContainerHeader(markerTinyListBase, markerList8, markerList16, markerList32, len(items)); err != nil {
		return err
	}
	for _, item := range items {
		if err := e.WriteValue(item); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeMap(m map[string]any) error {
	if err := e.writeContainerHeader(markerTinyMapBase, markerMap8, markerMap16, markerMap32, len(m)); err != nil {
		return err
	}
	for k, v := range m {
		if err := e.writeString(k); err != nil {
			return err
		}
		if err := e.WriteValue(v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeStruct(s *Structure) error {
	n := len(s.Fields)
	if n > 15 {
		hdr := make([]byte, 2)
		binary.BigEndian.PutUint16(hdr, uint16(n))
		if err := e.writeFixed(markerStruct16, hdr); err != nil {
			return err
		}
	} else {
		if err := e.writeByte(byte(markerTinyStructBase + n)); err != nil {
			return err
		}
	}
	if err := e.writeByte(s.Tag); err != nil {
		return err
	}
	for _, f := range s.Fields {
		if err := e.WriteValue(f); err != nil {
			return err
		}
	}
	return nil
}

// writeContainerHeader picks the tiny/8/16/32-bit size encoding shared by
// lists and maps, which only differ in their tiny-marker base and element
// encoding after the header.
func (e *Encoder) writeContainerHeader(tinyBase, m8, m16, m32 byte, n int) error {
	switch {
	case n <= 15:
		return e.writeByte(byte(int(tinyBase) + n))
	case n <= 0xFF:
		return e.writeFixed(m8, []byte{byte(n)})
	case n <= 0xFFFF:
		hdr := make([]byte, 2)
		binary.BigEndian.PutUint16(hdr, uint16(n))
		return e.writeFixed(m16, hdr)
	default:
		hdr := make([]byte, 4)
		binary.BigEndian.PutUint32(hdr, uint32(n))
		return e.writeFixed(m32, hdr)
	}
}
