package topicdisc

import (
	"encoding/base64"
	"net"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// RecordPrefix starts the text form of a NodeRecord.
const RecordPrefix = "enr:"

const (
	fieldID  protowire.Number = 1
	fieldSeq protowire.Number = 2
	fieldIP  protowire.Number = 3
	fieldUDP protowire.Number = 4
	fieldTCP protowire.Number = 5
)

// MarshalBinary encodes r using the protobuf wire format.
func (r NodeRecord) MarshalBinary() ([]byte, error) {
	var out []byte
	out = protowire.AppendTag(out, fieldID, protowire.BytesType)
	out = protowire.AppendBytes(out, r.ID[:])
	if r.Seq != 0 {
		out = protowire.AppendTag(out, fieldSeq, protowire.VarintType)
		out = protowire.AppendVarint(out, r.Seq)
	}
	if ip := normalizeIP(r.IP); ip != nil {
		out = protowire.AppendTag(out, fieldIP, protowire.BytesType)
		out = protowire.AppendBytes(out, ip)
	}
	if r.UDP != 0 {
		out = protowire.AppendTag(out, fieldUDP, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(r.UDP))
	}
	if r.TCP != 0 {
		out = protowire.AppendTag(out, fieldTCP, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(r.TCP))
	}
	return out, nil
}

// UnmarshalBinary decodes the output of MarshalBinary.
// Unknown fields are skipped.
func (r *NodeRecord) UnmarshalBinary(data []byte) error {
	var rec NodeRecord
	var hasID bool
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errors.Wrap(ErrInvalidRecord, protowire.ParseError(n).Error())
		}
		data = data[n:]
		switch {
		case num == fieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return errors.Wrap(ErrInvalidRecord, protowire.ParseError(n).Error())
			}
			if len(v) != len(rec.ID) {
				return errors.Wrapf(ErrInvalidRecord, "id is %d bytes", len(v))
			}
			copy(rec.ID[:], v)
			hasID = true
			data = data[n:]
		case num == fieldIP && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return errors.Wrap(ErrInvalidRecord, protowire.ParseError(n).Error())
			}
			if len(v) != net.IPv4len && len(v) != net.IPv6len {
				return errors.Wrapf(ErrInvalidRecord, "ip is %d bytes", len(v))
			}
			rec.IP = append(net.IP{}, v...)
			data = data[n:]
		case (num == fieldSeq || num == fieldUDP || num == fieldTCP) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return errors.Wrap(ErrInvalidRecord, protowire.ParseError(n).Error())
			}
			switch num {
			case fieldSeq:
				rec.Seq = v
			case fieldUDP, fieldTCP:
				if v > 0xffff {
					return errors.Wrapf(ErrInvalidRecord, "port %d out of range", v)
				}
				if num == fieldUDP {
					rec.UDP = uint16(v)
				} else {
					rec.TCP = uint16(v)
				}
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return errors.Wrap(ErrInvalidRecord, protowire.ParseError(n).Error())
			}
			data = data[n:]
		}
	}
	if !hasID {
		return errors.Wrap(ErrInvalidRecord, "missing id")
	}
	*r = rec
	return nil
}

// MarshalText returns the "enr:" prefixed, base64 form of r.
func (r NodeRecord) MarshalText() ([]byte, error) {
	data, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	enc := base64.RawURLEncoding
	out := make([]byte, len(RecordPrefix)+enc.EncodedLen(len(data)))
	copy(out, RecordPrefix)
	enc.Encode(out[len(RecordPrefix):], data)
	return out, nil
}

func (r *NodeRecord) UnmarshalText(data []byte) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(data)), RecordPrefix)
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return errors.Wrap(ErrInvalidRecord, "invalid base64 encoded record")
	}
	return r.UnmarshalBinary(raw)
}

// ParseRecord parses the text form of a NodeRecord.
func ParseRecord(s string) (NodeRecord, error) {
	var r NodeRecord
	err := r.UnmarshalText([]byte(s))
	return r, err
}

// Text returns the text form of r.
func (r NodeRecord) Text() string {
	data, _ := r.MarshalText()
	return string(data)
}

func normalizeIP(ip net.IP) net.IP {
	if ip == nil {
		return nil
	}
	if ip4 := ip.To4(); ip4 != nil {
		return ip4
	}
	return ip.To16()
}
