// Package packstream implements encode/decode for the PackStream v1 type
// system that the Bolt wire protocol carries its messages in: null,
// boolean, the integer family, float, string, list, map/dictionary and
// tagged structure. There is no example repo in the pack that implements
// this wire format directly; the shape of an Encoder/Decoder pair reading
// and writing a single framed stream is adapted from the teacher's
// internal/mcp stdio transport, generalized from line-delimited JSON to
// PackStream's own length-prefixed binary values.
package packstream

import "fmt"

// Structure is PackStream's tagged-tuple type: a one-byte signature plus
// an ordered list of fields, used to carry every Bolt message and every
// Node/Relationship/Path record value.
type Structure struct {
	Tag    byte
	Fields []any
}

func (s *Structure) String() string {
	return fmt.Sprintf("Structure{tag: 0x%02x, fields: %v}", s.Tag, s.Fields)
}

// marker bytes, PackStream v1 (Bolt 2-5.x share this encoding).
const (
	markerNull    = 0xC0
	markerFalse   = 0xC2
	markerTrue    = 0xC3
	markerFloat64 = 0xC1

	markerInt8  = 0xC8
	markerInt16 = 0xC9
	markerInt32 = 0xCA
	markerInt64 = 0xCB

	markerBytes8  = 0xCC
	markerBytes16 = 0xCD
	markerBytes32 = 0xCE

	markerTinyStringBase = 0x80
	markerString8        = 0xD0
	markerString16       = 0xD1
	markerString32       = 0xD2

	markerTinyListBase = 0x90
	markerList8        = 0xD4
	markerList16       = 0xD5
	markerList32       = 0xD6

	markerTinyMapBase = 0xA0
	markerMap8        = 0xD8
	markerMap16       = 0xD9
	markerMap32       = 0xDA

	markerTinyStructBase = 0xB0
	markerStruct8        = 0xDC
	markerStruct16       = 0xDD

	tinyIntPositiveMax = 0x7F
	tinyIntNegativeMin = 0xF0
)
