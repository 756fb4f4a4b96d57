package storage

import (
	"testing"

	"github.com/csnode/corenode/blockchain"
)

func TestInMemChainStoreAndGet(t *testing.T) {
	c := NewInMemChain()

	var storedSeqs []blockchain.Sequence
	c.OnBlockStored(func(seq blockchain.Sequence) {
		storedSeqs = append(storedSeqs, seq)
	})

	res, err := c.StoreBlock(&blockchain.Pool{Seq: 1})
	if err != nil || res != blockchain.Stored {
		t.Fatalf("expected Stored, got %v, %v", res, err)
	}
	if c.LastSequence() != 1 {
		t.Fatalf("expected LastSequence 1, got %d", c.LastSequence())
	}

	if _, ok := c.GetBlock(1); !ok {
		t.Fatalf("expected block 1 to be retrievable")
	}
	if len(storedSeqs) != 1 || storedSeqs[0] != 1 {
		t.Fatalf("expected OnBlockStored(1), got %v", storedSeqs)
	}
}

func TestInMemChainDuplicateIsIdempotent(t *testing.T) {
	c := NewInMemChain()
	c.StoreBlock(&blockchain.Pool{Seq: 1})

	res, err := c.StoreBlock(&blockchain.Pool{Seq: 1})
	if err != nil || res != blockchain.Duplicate {
		t.Fatalf("expected Duplicate, got %v, %v", res, err)
	}
	if c.LastSequence() != 1 {
		t.Fatalf("duplicate store should not change LastSequence")
	}
}

func TestInMemChainNonContiguousIsInvalid(t *testing.T) {
	c := NewInMemChain()

	res, err := c.StoreBlock(&blockchain.Pool{Seq: 5})
	if err != nil || res != blockchain.Invalid {
		t.Fatalf("expected Invalid for a non-contiguous sequence, got %v, %v", res, err)
	}
}

func TestInMemChainSequentialAppend(t *testing.T) {
	c := NewInMemChain()
	for seq := blockchain.Sequence(1); seq <= 5; seq++ {
		res, err := c.StoreBlock(&blockchain.Pool{Seq: seq})
		if err != nil || res != blockchain.Stored {
			t.Fatalf("expected Stored for seq %d, got %v, %v", seq, res, err)
		}
	}
	if c.LastSequence() != 5 {
		t.Fatalf("expected LastSequence 5, got %d", c.LastSequence())
	}
}
