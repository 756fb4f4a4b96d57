package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/crypto/keys"
)

// BlockRequest is the payload of a PoolsRequest signal once it hits the
// wire: target_key(32) | packet_id(8) | sequence_count(4) | sequences[n](8 each).
type BlockRequest struct {
	TargetKey keys.PublicKey
	PacketID  uint64
	Sequences []blockchain.Sequence
}

// Encode renders the request in its byte-exact layout.
func (r *BlockRequest) Encode() []byte {
	buf := make([]byte, 32+8+4+8*len(r.Sequences))
	copy(buf[0:32], r.TargetKey[:])
	binary.BigEndian.PutUint64(buf[32:40], r.PacketID)
	binary.BigEndian.PutUint32(buf[40:44], uint32(len(r.Sequences)))
	offset := 44
	for _, seq := range r.Sequences {
		binary.BigEndian.PutUint64(buf[offset:offset+8], seq)
		offset += 8
	}
	return buf
}

// DecodeBlockRequest parses a BlockRequest from its byte-exact layout.
func DecodeBlockRequest(buf []byte) (*BlockRequest, error) {
	if len(buf) < 44 {
		return nil, fmt.Errorf("block request too short: %d bytes", len(buf))
	}

	r := &BlockRequest{PacketID: binary.BigEndian.Uint64(buf[32:40])}
	copy(r.TargetKey[:], buf[0:32])

	count := binary.BigEndian.Uint32(buf[40:44])
	if uint64(len(buf)) < 44+8*uint64(count) {
		return nil, fmt.Errorf("block request truncated: expected %d sequences", count)
	}

	r.Sequences = make([]blockchain.Sequence, count)
	offset := 44
	for i := uint32(0); i < count; i++ {
		r.Sequences[i] = binary.BigEndian.Uint64(buf[offset : offset+8])
		offset += 8
	}
	return r, nil
}

// BlockReply is the payload of a block request's response: packet_id(8) |
// pool_count(4) | (pool_len(4) | encoded_pool)*. Each pool is length-
// prefixed since its codec-encoded form has variable size.
type BlockReply struct {
	PacketID uint64
	Pools    []*blockchain.Pool
}

// Encode renders the reply in its byte-exact layout.
func (r *BlockReply) Encode() ([]byte, error) {
	encoded := make([][]byte, len(r.Pools))
	total := 8 + 4
	for i, pool := range r.Pools {
		data, err := pool.Marshal()
		if err != nil {
			return nil, fmt.Errorf("encode pool %d: %w", pool.Sequence(), err)
		}
		encoded[i] = data
		total += 4 + len(data)
	}

	buf := make([]byte, total)
	binary.BigEndian.PutUint64(buf[0:8], r.PacketID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(r.Pools)))
	offset := 12
	for _, data := range encoded {
		binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(data)))
		offset += 4
		copy(buf[offset:], data)
		offset += len(data)
	}
	return buf, nil
}

// DecodeBlockReply parses a BlockReply from its byte-exact layout.
func DecodeBlockReply(buf []byte) (*BlockReply, error) {
	if len(buf) < 12 {
		return nil, fmt.Errorf("block reply too short: %d bytes", len(buf))
	}

	r := &BlockReply{PacketID: binary.BigEndian.Uint64(buf[0:8])}
	count := binary.BigEndian.Uint32(buf[8:12])

	offset := 12
	for i := uint32(0); i < count; i++ {
		if len(buf) < offset+4 {
			return nil, fmt.Errorf("block reply truncated at pool %d length prefix", i)
		}
		poolLen := int(binary.BigEndian.Uint32(buf[offset : offset+4]))
		offset += 4
		if len(buf) < offset+poolLen {
			return nil, fmt.Errorf("block reply truncated at pool %d body", i)
		}

		pool := new(blockchain.Pool)
		if err := pool.Unmarshal(buf[offset : offset+poolLen]); err != nil {
			return nil, fmt.Errorf("decode pool %d: %w", i, err)
		}
		r.Pools = append(r.Pools, pool)
		offset += poolLen
	}
	return r, nil
}
