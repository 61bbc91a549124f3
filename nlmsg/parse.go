package nlmsg

import "math"

// ParseResult is the outcome of a successful Parse: the validated
// attributes, plus how many attribute records were skipped because their
// type wasn't named by the policy (purely diagnostic; it changes nothing
// about what makes Parse succeed or fail).
type ParseResult struct {
	Attrs   Attrs
	Unknown int
}

// Parse walks the TLV attribute stream in data against policy: each
// attribute is bounds-checked, validated against its
// policy entry's kind and length range, and (for strings) checked for a
// single trailing NUL. Unknown types (absent from policy, or explicitly
// KindAbsent) are skipped without error. Parse fails if any required slot
// (non-absent, non-flag, non-optional) is never filled, or if the
// attribute stream itself is malformed.
func Parse(data []byte, policy Policy) (ParseResult, error) {
	attrs := make(Attrs, len(policy))
	required := 0
	for _, e := range policy {
		if e.required() {
			required++
		}
	}

	unknown := 0
	off := 0
	for off < len(data) {
		if len(data)-off < AttrHdrLen {
			return ParseResult{}, ErrAttrTruncated
		}
		nlaLen := int(endian.Uint16(data[off : off+2]))
		attrType := endian.Uint16(data[off+2 : off+4])
		if nlaLen < AttrHdrLen {
			return ParseResult{}, ErrAttrTruncated
		}
		aligned := Align(nlaLen)
		if aligned > len(data)-off {
			return ParseResult{}, ErrAttrTruncated
		}
		payload := data[off+AttrHdrLen : off+nlaLen]

		entry, known := policy[attrType]
		if !known || entry.Kind == KindAbsent {
			unknown++
			off += aligned
			continue
		}
		if len(payload) < entry.Min || len(payload) > entry.Max {
			return ParseResult{}, ErrAttrLength
		}
		if entry.Kind == KindString {
			if len(payload) == 0 || payload[len(payload)-1] != 0 {
				return ParseResult{}, ErrAttrString
			}
			for _, c := range payload[:len(payload)-1] {
				if c == 0 {
					return ParseResult{}, ErrAttrString
				}
			}
		}
		if _, already := attrs[attrType]; !already {
			attrs[attrType] = payload
			if entry.required() {
				required--
			}
		}
		off += aligned
	}

	if required != 0 {
		return ParseResult{}, ErrMissingRequired
	}
	return ParseResult{Attrs: attrs, Unknown: unknown}, nil
}

// ParseError decodes an NLMSG_ERROR payload: a 4-byte signed error code
// (negated errno; 0 means ACK) immediately after the nlmsghdr. Codes
// outside (math.MinInt32, 0] are coerced to ErrProtocol. A nil return
// means success/ACK.
func ParseError(payload []byte) error {
	if len(payload) < 4 {
		return ErrTruncated
	}
	code := int32(endian.Uint32(payload[0:4]))
	if code == 0 {
		return nil
	}
	if code > 0 || code == math.MinInt32 {
		return ErrProtocol
	}
	return errnoFromCode(-code)
}
