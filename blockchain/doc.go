// Package blockchain defines the Pool/Block data carried by the core and
// the BlockChain interface the core consumes for persistence. Storage
// itself is implemented outside this package (see storage and
// storage/badgerstore); blockchain only defines the shape of the
// contract and the outcome of a store attempt.
package blockchain
