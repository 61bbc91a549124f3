// Package ofp defines the small piece of the OpenFlow wire format that
// ofconn's framing needs: the common header and its network-order length
// field.
package ofp

import "encoding/binary"

// HeaderLen is sizeof(ofp_header): version, type, length, xid.
const HeaderLen = 8

// TCPPort is the default OpenFlow controller port.
const TCPPort = 6633

// Header is the decoded form of an ofp_header.
type Header struct {
	Version uint8
	Type    uint8
	Length  uint16
	Xid     uint32
}

// ReadHeader decodes the first HeaderLen bytes of data.
func ReadHeader(data []byte) Header {
	return Header{
		Version: data[0],
		Type:    data[1],
		Length:  binary.BigEndian.Uint16(data[2:4]),
		Xid:     binary.BigEndian.Uint32(data[4:8]),
	}
}

// PutHeader encodes h into the first HeaderLen bytes of data.
func PutHeader(data []byte, h Header) {
	data[0] = h.Version
	data[1] = h.Type
	binary.BigEndian.PutUint16(data[2:4], h.Length)
	binary.BigEndian.PutUint32(data[4:8], h.Xid)
}
