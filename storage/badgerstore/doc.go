// Package badgerstore implements a persistent blockchain.BlockChain backed
// by Badger, keyed on big-endian sequence numbers, using the standard
// db.View/db.NewTransaction access pattern.
package badgerstore
