// Package keys implements the public key cryptography used to identify and
// sign for peers in the network.
//
// A node owns a cryptographic key-pair that it uses to sign and verify
// messages. The private key is secret; the public key is derived from it and
// used by other nodes to verify messages signed with the private key, and to
// derive the node's 32-byte PublicKey identity.
//
// This package uses elliptic curve cryptography (ECDSA) with the secp256k1
// curve, the same curve used by Bitcoin and Ethereum, so that existing
// wallets can operate a node.
package keys
