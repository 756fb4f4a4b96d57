package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/csnode/corenode/crypto/keys"
)

// Flags is the base bitset carried in every frame header.
type Flags uint8

const (
	// NetworkMsg frames carry no sender public key: the header is
	// followed directly by the payload.
	NetworkMsg Flags = 0x01
	// Fragmented frames carry a 12-byte fragmentation header immediately
	// after the base header.
	Fragmented Flags = 0x02
	// Reply distinguishes a NetworkMsg frame carrying a BlockReply from
	// one carrying a BlockRequest; both travel point-to-point via
	// Neighbourhood.SendTo and share the NetworkMsg bit.
	Reply Flags = 0x04
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

const headerSize = 5
const fragmentHeaderSize = 12
const senderKeySize = 32

// FragmentHeader is present only when Flags.Has(Fragmented).
type FragmentHeader struct {
	MessageID     uint64
	FragmentIndex uint16
	FragmentCount uint16
}

// Frame is a fully decoded packet: header, optional fragmentation info,
// optional sender identity, and the opaque payload bytes.
type Frame struct {
	Flags       Flags
	IDLo        uint16
	PacketCount uint16
	Fragment    *FragmentHeader
	Sender      *keys.PublicKey
	Payload     []byte
}

// Encode renders f into the byte-exact wire layout:
// flags(1) | id_lo(2) | packet_count(2) [| message_id(8) | fragment_index(2) | fragment_count(2)] [| sender(32)] | payload
func (f *Frame) Encode() []byte {
	size := headerSize
	if f.Flags.Has(Fragmented) {
		size += fragmentHeaderSize
	}
	if !f.Flags.Has(NetworkMsg) {
		size += senderKeySize
	}
	size += len(f.Payload)

	buf := make([]byte, size)
	buf[0] = byte(f.Flags)
	binary.BigEndian.PutUint16(buf[1:3], f.IDLo)
	binary.BigEndian.PutUint16(buf[3:5], f.PacketCount)
	offset := headerSize

	if f.Flags.Has(Fragmented) {
		frag := f.Fragment
		if frag == nil {
			frag = &FragmentHeader{}
		}
		binary.BigEndian.PutUint64(buf[offset:offset+8], frag.MessageID)
		binary.BigEndian.PutUint16(buf[offset+8:offset+10], frag.FragmentIndex)
		binary.BigEndian.PutUint16(buf[offset+10:offset+12], frag.FragmentCount)
		offset += fragmentHeaderSize
	}

	if !f.Flags.Has(NetworkMsg) {
		var sender keys.PublicKey
		if f.Sender != nil {
			sender = *f.Sender
		}
		copy(buf[offset:offset+senderKeySize], sender[:])
		offset += senderKeySize
	}

	copy(buf[offset:], f.Payload)
	return buf
}

// Decode parses buf into a Frame according to its flags byte.
func Decode(buf []byte) (*Frame, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("frame too short for header: %d bytes", len(buf))
	}

	f := &Frame{
		Flags:       Flags(buf[0]),
		IDLo:        binary.BigEndian.Uint16(buf[1:3]),
		PacketCount: binary.BigEndian.Uint16(buf[3:5]),
	}
	offset := headerSize

	if f.Flags.Has(Fragmented) {
		if len(buf) < offset+fragmentHeaderSize {
			return nil, fmt.Errorf("frame too short for fragmentation header")
		}
		f.Fragment = &FragmentHeader{
			MessageID:     binary.BigEndian.Uint64(buf[offset : offset+8]),
			FragmentIndex: binary.BigEndian.Uint16(buf[offset+8 : offset+10]),
			FragmentCount: binary.BigEndian.Uint16(buf[offset+10 : offset+12]),
		}
		offset += fragmentHeaderSize
	}

	if !f.Flags.Has(NetworkMsg) {
		if len(buf) < offset+senderKeySize {
			return nil, fmt.Errorf("frame too short for sender key")
		}
		var sender keys.PublicKey
		copy(sender[:], buf[offset:offset+senderKeySize])
		f.Sender = &sender
		offset += senderKeySize
	}

	f.Payload = buf[offset:]
	return f, nil
}
