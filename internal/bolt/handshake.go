package bolt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// bootSignature is the 4-byte magic every Bolt client sends before its
// four proposed versions.
var bootSignature = [4]byte{0x60, 0x60, 0xB0, 0x17}

// ProtocolVersion is a negotiated Bolt major.minor pair.
type ProtocolVersion struct {
	Major byte
	Minor byte
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// supportedVersions lists every version this server accepts (spec
// §4.9/§6: "protocol-conformant to Neo4j Bolt v4.4 and v5.8").
// negotiateHandshake picks the first client proposal found here, so the
// client's proposal order decides between them, not the order of this list.
var supportedVersions = []ProtocolVersion{
	{Major: 5, Minor: 8},
	{Major: 4, Minor: 4},
}

// negotiateHandshake reads the client's magic + four proposed versions and
// writes back the first one this server supports, or all-zero to signal
// "none acceptable" (per the Bolt handshake spec, the connection is then
// expected to close).
func negotiateHandshake(rw io.ReadWriter) (ProtocolVersion, error) {
	var sig [4]byte
	if _, err := io.ReadFull(rw, sig[:]); err != nil {
		return ProtocolVersion{}, fmt.Errorf("bolt: failed to read handshake signature: %w", err)
	}
	if sig != bootSignature {
		return ProtocolVersion{}, fmt.Errorf("bolt: bad handshake signature %x", sig)
	}

	proposals := make([]byte, 16)
	if _, err := io.ReadFull(rw, proposals); err != nil {
		return ProtocolVersion{}, fmt.Errorf("bolt: failed to read proposed versions: %w", err)
	}

	var chosen ProtocolVersion
	for i := 0; i < 4; i++ {
		raw := binary.BigEndian.Uint32(proposals[i*4 : i*4+4])
		minor := byte(raw >> 8)
		major := byte(raw)
		for _, supported := range supportedVersions {
			if supported.Major == major && supported.Minor == minor {
				chosen = supported
				break
			}
		}
		if chosen.Major != 0 {
			break
		}
	}

	resp := make([]byte, 4)
	binary.BigEndian.PutUint32(resp, uint32(chosen.Minor)<<8|uint32(chosen.Major))
	if _, err := rw.Write(resp); err != nil {
		return ProtocolVersion{}, err
	}
	if chosen.Major == 0 {
		return ProtocolVersion{}, fmt.Errorf("bolt: no mutually supported protocol version")
	}
	return chosen, nil
}
