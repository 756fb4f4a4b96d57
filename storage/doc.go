// Package storage provides an in-memory blockchain.BlockChain reference
// implementation, used by unit tests across neighbourhood, poolsync and
// consensus. For a persistent implementation see storage/badgerstore.
package storage
