package wire

import (
	"testing"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/crypto/keys"
)

func TestBlockRequestRoundTrip(t *testing.T) {
	var target keys.PublicKey
	target[0] = 0x01

	req := &BlockRequest{TargetKey: target, PacketID: 123, Sequences: []blockchain.Sequence{1, 2, 3}}
	buf := req.Encode()

	got, err := DecodeBlockRequest(buf)
	if err != nil {
		t.Fatalf("DecodeBlockRequest: %v", err)
	}
	if got.TargetKey != target || got.PacketID != 123 {
		t.Fatalf("header mismatch: %+v", got)
	}
	if len(got.Sequences) != 3 || got.Sequences[0] != 1 || got.Sequences[2] != 3 {
		t.Fatalf("sequences mismatch: %v", got.Sequences)
	}
}

func TestDecodeBlockRequestRejectsTruncated(t *testing.T) {
	if _, err := DecodeBlockRequest([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected an error for a truncated request")
	}
}

func TestBlockReplyRoundTrip(t *testing.T) {
	reply := &BlockReply{
		PacketID: 55,
		Pools: []*blockchain.Pool{
			{Seq: 1, Transactions: []blockchain.Transaction{[]byte("a")}},
			{Seq: 2, Transactions: []blockchain.Transaction{[]byte("b"), []byte("c")}},
		},
	}

	buf, err := reply.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := DecodeBlockReply(buf)
	if err != nil {
		t.Fatalf("DecodeBlockReply: %v", err)
	}
	if got.PacketID != 55 || len(got.Pools) != 2 {
		t.Fatalf("header mismatch: %+v", got)
	}
	if got.Pools[0].Sequence() != 1 || got.Pools[1].Sequence() != 2 {
		t.Fatalf("pool sequences mismatch")
	}
	if len(got.Pools[1].Transactions) != 2 {
		t.Fatalf("expected 2 transactions in second pool")
	}
}

func TestBlockReplyEmpty(t *testing.T) {
	reply := &BlockReply{PacketID: 1}
	buf, err := reply.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeBlockReply(buf)
	if err != nil {
		t.Fatalf("DecodeBlockReply: %v", err)
	}
	if len(got.Pools) != 0 {
		t.Fatalf("expected no pools, got %d", len(got.Pools))
	}
}
